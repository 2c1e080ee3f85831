package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, want, parseTime("2024-03-10T12:30:00Z"))
	assert.Equal(t, want, parseTime("2024-03-10T12:30:00"))
	assert.Equal(t, want, parseTime("2024-03-10 12:30:00"))
	assert.True(t, parseTime("unknown").IsZero())
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
}

func TestLdflagsWin(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime })

	Version = "v1.2.0"
	GitCommit = "abc1234def"
	BuildTime = "2024-03-10T12:30:00Z"

	info := Get()
	assert.Equal(t, "v1.2.0", info.Version)
	assert.Equal(t, "abc1234def", info.GitCommit)
	assert.Equal(t, "v1.2.0 (abc1234)", info.Short())
	assert.True(t, info.IsRelease())
	assert.Contains(t, info.String(), "Built: 2024-03-10T12:30:00Z")
	assert.True(t, strings.HasPrefix(info.String(), "Version: v1.2.0\nCommit: abc1234def"))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "dev", BuildInfo{Version: "dev", GitCommit: "unknown"}.Short())
	assert.Equal(t, "dev-abc1234", BuildInfo{Version: "dev-abc1234", GitCommit: "abc1234ffff"}.Short())
	assert.False(t, BuildInfo{Version: "dev-abc1234"}.IsRelease())
}

func TestStringOmitsUnknowns(t *testing.T) {
	s := BuildInfo{Version: "dev", GitCommit: "unknown", GoVersion: "go1.24.4", Platform: "linux/amd64"}.String()
	assert.Equal(t, "Version: dev\nGo: go1.24.4\nPlatform: linux/amd64", s)

	dirty := BuildInfo{Version: "dev", GitCommit: "abc", Dirty: true}.String()
	assert.Contains(t, dirty, "Commit: abc (dirty)")
}
