package nav

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tabierrors "github.com/conneroisu/tabi/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sample = `
entries:
  - label: Home
    href: /
  - title: Guides
    items:
      - label: Start
        href: /start
      - label: Deploy
        href: /guides/deploy/
  - label: Reference
    href: /reference
`

func TestNormalize(t *testing.T) {
	testCases := map[string]string{
		"/":            "/",
		"/docs/":       "/docs",
		"/docs":        "/docs",
		"/docs///":     "/docs",
		"//":           "/",
		"/a/b/":        "/a/b",
		"":             "",
		"relative/":    "relative",
		"/with.ext":    "/with.ext",
		"/nested/dir/": "/nested/dir",
	}
	for in, want := range testCases {
		t.Run(in, func(t *testing.T) {
			got := Normalize(in)
			assert.Equal(t, want, got)
			assert.Equal(t, got, Normalize(got))
		})
	}
}

func TestMatchesIsExact(t *testing.T) {
	assert.True(t, Matches("/start/", "/start"))
	assert.True(t, Matches("/", "/"))
	assert.False(t, Matches("/docs/getting-started", "/docs"))
	assert.False(t, Matches("/docs", "/docs/getting-started"))
	assert.False(t, Matches("/start/", "/"))
}

func TestParse(t *testing.T) {
	entries, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.False(t, entries[0].IsGroup())
	assert.Equal(t, Item{Label: "Home", Href: "/"}, *entries[0].Item)

	require.True(t, entries[1].IsGroup())
	assert.Equal(t, "Guides", entries[1].Group.Title)
	assert.Equal(t, []Item{{Label: "Start", Href: "/start"}, {Label: "Deploy", Href: "/guides/deploy/"}}, entries[1].Group.Items)

	assert.Equal(t, []Item{
		{Label: "Home", Href: "/"},
		{Label: "Start", Href: "/start"},
		{Label: "Deploy", Href: "/guides/deploy/"},
		{Label: "Reference", Href: "/reference"},
	}, Flatten(entries))
}

func TestParseRejectsNestedGroups(t *testing.T) {
	_, err := Parse([]byte(`
entries:
  - title: Outer
    items:
      - title: Inner
        items:
          - label: X
            href: /x
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one level of grouping")
}

func TestParseValidation(t *testing.T) {
	_, err := Parse([]byte(`
entries:
  - label: ""
    href: /x
  - title: ""
    items:
      - label: Y
`))
	require.Error(t, err)
	assert.True(t, tabierrors.IsType(err, tabierrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "entries[0].label")
	assert.Contains(t, err.Error(), "entries[1].title")
	assert.Contains(t, err.Error(), "entries[1].items[0].href")
}

func TestRoundTripShape(t *testing.T) {
	entries := []Entry{ItemEntry("Home", "/"), GroupEntry("Guides", Item{Label: "Start", Href: "/start"})}
	data, err := yaml.Marshal(file{Entries: entries})
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, entries, back)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nav.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	entries, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
	var te *tabierrors.TabiError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, tabierrors.ErrCodeFileNotFound, te.Code)
	assert.Contains(t, err.Error(), "missing.yml")
}
