package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tabierrors "github.com/conneroisu/tabi/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestAddPathValidation(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, watcher.AddPath(t.TempDir()))

	err = watcher.AddPath(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, tabierrors.IsType(err, tabierrors.ErrorTypeIO))

	err = watcher.AddPath("  ")
	require.Error(t, err)
	assert.True(t, tabierrors.IsType(err, tabierrors.ErrorTypeValidation))
}

func TestAddRecursiveSkipsHiddenDirectories(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "guides", "advanced"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))

	require.NoError(t, watcher.AddRecursive(root))
	watched := watcher.watcher.WatchList()
	assert.Contains(t, watched, filepath.Join(root, "guides", "advanced"))
	assert.NotContains(t, watched, filepath.Join(root, ".git"))

	assert.Error(t, watcher.AddRecursive(filepath.Join(root, "nope")))
}

func TestStartDeliversFilteredBatches(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddRecursive(dir))
	watcher.AddFilter(AnyOf(ContentFilter, NavFilter))
	watcher.AddFilter(NoHiddenFilter)

	var mu sync.Mutex
	var seen []string
	watcher.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			seen = append(seen, filepath.Base(e.Path))
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "intro.md"), []byte("# Intro"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".intro.md.swp"), []byte("ignored"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, "intro.md")
	assert.NotContains(t, seen, "notes.txt")
	assert.NotContains(t, seen, ".intro.md.swp")
}

func TestNewSubdirectoriesAreWatched(t *testing.T) {
	watcher, err := NewFileWatcher(30*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddRecursive(dir))
	watcher.AddFilter(ContentFilter)

	got := make(chan string, 10)
	watcher.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		for _, e := range events {
			got <- e.Path
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	sub := filepath.Join(dir, "reference")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool {
		for _, p := range watcher.watcher.WatchList() {
			if p == sub {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	target := filepath.Join(sub, "api.html")
	require.NoError(t, os.WriteFile(target, []byte("<h2>API</h2>"), 0o644))

	timeout := time.After(2 * time.Second)
	for {
		select {
		case p := <-got:
			if p == target {
				return
			}
		case <-timeout:
			t.Fatal("no event for file in new directory")
		}
	}
}

func TestDebouncerCoalescesAndSorts(t *testing.T) {
	debouncer := newDebouncer(40 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.events <- ChangeEvent{Path: "b.md", Type: EventTypeCreated}
	debouncer.events <- ChangeEvent{Path: "a.md", Type: EventTypeModified}
	debouncer.events <- ChangeEvent{Path: "b.md", Type: EventTypeModified}

	select {
	case batch := <-debouncer.output:
		require.Len(t, batch, 2)
		assert.Equal(t, "a.md", batch[0].Path)
		assert.Equal(t, "b.md", batch[1].Path)
		assert.Equal(t, EventTypeModified, batch[1].Type, "last event per path wins")
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestFilters(t *testing.T) {
	testCases := []struct {
		path    string
		content bool
		nav     bool
		visible bool
	}{
		{"content/index.md", true, false, true},
		{"content/guide.MARKDOWN", true, false, true},
		{"content/page.html", true, false, true},
		{"content/page.htm", true, false, true},
		{"nav.yml", false, true, true},
		{"site/nav.yaml", false, true, true},
		{"main.go", false, false, true},
		{"content/.page.html", true, false, false},
		{"content/page.html~", false, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.content, ContentFilter(tc.path))
			assert.Equal(t, tc.nav, NavFilter(tc.path))
			assert.Equal(t, tc.visible, NoHiddenFilter(tc.path))
			assert.Equal(t, tc.content || tc.nav, AnyOf(ContentFilter, NavFilter)(tc.path))
		})
	}
}

func TestDoubleStop(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)

	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}
