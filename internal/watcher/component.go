package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/conneroisu/pagelume/internal/events"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/scanner"
	"github.com/conneroisu/pagelume/internal/types"
)

// ComponentWatcher publishes a WatchEvent for every debounced change that
// falls inside a type/variation subtree of the components root. Changes
// elsewhere are ignored. Nothing is recompiled here.
type ComponentWatcher struct {
	root   string
	fw     *FileWatcher
	bus    *events.Bus[types.WatchEvent]
	logger logging.Logger
}

// NewComponentWatcher watches root recursively and publishes onto bus.
func NewComponentWatcher(root string, debounce time.Duration, bus *events.Bus[types.WatchEvent], logger logging.Logger) (*ComponentWatcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	absRoot, err := cleanPath(root)
	if err != nil {
		return nil, err
	}

	fw, err := NewFileWatcher(debounce, logger)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(NoIgnoredDirFilter)
	fw.AddFilter(NoEditorTempFilter)
	fw.AddFilter(NoSourceMapFilter)

	cw := &ComponentWatcher{
		root:   absRoot,
		fw:     fw,
		bus:    bus,
		logger: logger.WithComponent("component-watcher"),
	}
	fw.AddHandler(cw.handle)

	if err := fw.AddRecursive(absRoot); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	return cw, nil
}

// Start begins delivering events until ctx is cancelled or Stop is called.
func (cw *ComponentWatcher) Start(ctx context.Context) error {
	cw.logger.Info(ctx, "watching components", "root", cw.root)
	return cw.fw.Start(ctx)
}

// Stop releases the underlying watcher.
func (cw *ComponentWatcher) Stop() error {
	return cw.fw.Stop()
}

// Resolve maps a change event to a WatchEvent. ok is false when the path
// does not belong to any component.
func (cw *ComponentWatcher) Resolve(change ChangeEvent) (types.WatchEvent, bool) {
	componentType, variation, ok := scanner.ComponentPathFor(cw.root, change.Path)
	if !ok {
		return types.WatchEvent{}, false
	}
	return types.WatchEvent{
		ChangedPath:   change.Path,
		Type:          componentType,
		Variation:     variation,
		ComponentPath: filepath.Join(cw.root, componentType, variation),
		Op:            change.Type.String(),
	}, true
}

func (cw *ComponentWatcher) handle(changes []ChangeEvent) error {
	ctx := context.Background()
	for _, change := range changes {
		ev, ok := cw.Resolve(change)
		if !ok {
			continue
		}
		delivered := cw.bus.Publish(ev)
		cw.logger.Debug(ctx, "component changed",
			"component", ev.Type+"/"+ev.Variation,
			"op", ev.Op,
			"subscribers", delivered,
		)
	}
	return nil
}
