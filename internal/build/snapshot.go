package build

import (
	"os"
	"path/filepath"
	"time"
)

// Component file layout, relative to the variation directory.
const (
	MetaFile     = "meta.json"
	TemplateFile = "index.html"
	SCSSFile     = "assets/scss/styles.scss"
	CSSFile      = "assets/css/styles.css"
	ScriptFile   = "assets/js/script.js"
)

// Snapshot holds every source file of one component as read at a single
// point in time. Compilation works from the snapshot only, so a concurrent
// edit lands either wholly before or wholly after a build.
type Snapshot struct {
	Dir     string
	TakenAt time.Time

	Meta    []byte
	HasMeta bool

	Template    []byte
	HasTemplate bool

	SCSS     []byte
	SCSSPath string
	HasSCSS  bool

	CSS    []byte
	HasCSS bool

	Script    []byte
	HasScript bool
}

// TakeSnapshot reads the component files under dir. Absent files are
// recorded as absent; any other read failure is returned.
func TakeSnapshot(dir string) (*Snapshot, error) {
	snap := &Snapshot{
		Dir:      dir,
		TakenAt:  time.Now(),
		SCSSPath: filepath.Join(dir, filepath.FromSlash(SCSSFile)),
	}

	reads := []struct {
		rel  string
		data *[]byte
		ok   *bool
	}{
		{MetaFile, &snap.Meta, &snap.HasMeta},
		{TemplateFile, &snap.Template, &snap.HasTemplate},
		{SCSSFile, &snap.SCSS, &snap.HasSCSS},
		{CSSFile, &snap.CSS, &snap.HasCSS},
		{ScriptFile, &snap.Script, &snap.HasScript},
	}
	for _, r := range reads {
		data, ok, err := readOptional(filepath.Join(dir, filepath.FromSlash(r.rel)))
		if err != nil {
			return nil, err
		}
		*r.data, *r.ok = data, ok
	}
	return snap, nil
}

func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}
