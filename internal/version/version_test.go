package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	assert.Equal(t, "v1.0.0 (abcdef1)", BuildInfo{Version: "v1.0.0", GitCommit: "abcdef1234"}.Short())
	assert.Equal(t, "dev", BuildInfo{Version: "dev", GitCommit: "unknown"}.Short())
	assert.Equal(t, "dev", BuildInfo{Version: "dev", GitCommit: "abc"}.Short())
}

func TestDetailed(t *testing.T) {
	out := BuildInfo{
		Version:   "v1.0.0",
		GitCommit: "unknown",
		BuildTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
		Dirty:     true,
	}.Detailed()

	assert.Contains(t, out, "Version: v1.0.0")
	assert.NotContains(t, out, "Commit:")
	assert.Contains(t, out, "Built: 2026-01-02T03:04:05Z")
	assert.Contains(t, out, "Platform: linux/amd64")
	assert.Contains(t, out, "Working directory: dirty")
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("unknown").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
	assert.Equal(t, 2026, parseTime("2026-03-04T05:06:07Z").Year())
	assert.Equal(t, 4, parseTime("2026-03-04 05:06:07").Day())
}

func TestGetFillsRuntime(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
