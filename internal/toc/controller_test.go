package toc

import (
	"bytes"
	"context"
	"testing"

	"github.com/conneroisu/tabi/internal/browser"
	"github.com/conneroisu/tabi/internal/dom"
	"github.com/conneroisu/tabi/internal/headings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	doc  *dom.HTMLDocument
	win  *browser.Memory
	obs  *headings.Observer
	ctrl *Controller
}

func newFixture(t *testing.T, body string) *fixture {
	t.Helper()
	doc, err := dom.ParseString(body)
	require.NoError(t, err)
	win := browser.NewMemory("/guide", 1280)
	obs := headings.NewObserver(doc, win, headings.DefaultObserverOptions(), nil)
	obs.Build(headings.DefaultContainerID)
	return &fixture{doc: doc, win: win, obs: obs, ctrl: New(obs, doc, win, win)}
}

func (f *fixture) intersect(t *testing.T, id string) {
	t.Helper()
	el, ok := f.doc.ElementByID(id)
	require.True(t, ok)
	f.win.Intersect(browser.IntersectionEntry{Target: el, Intersecting: true})
}

func render(t *testing.T, c *Controller) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Component().Render(context.Background(), &buf))
	return buf.String()
}

func TestEmptyOutlineRendersNothing(t *testing.T) {
	f := newFixture(t, `<article id="tabi-article"><p>prose only</p></article>`)

	assert.True(t, f.ctrl.Empty())
	assert.Nil(t, f.ctrl.Entries())
	assert.Equal(t, "", render(t, f.ctrl))
}

func TestMissingContainerRendersNothing(t *testing.T) {
	f := newFixture(t, `<main><h1>Orphan</h1></main>`)
	assert.Equal(t, "", render(t, f.ctrl))
}

func TestEntriesIndentAndActive(t *testing.T) {
	f := newFixture(t, `<article id="tabi-article"><h1>Intro</h1><h2>Setup</h2><h3>Details</h3></article>`)

	entries := f.ctrl.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{entries[0].Indent, entries[1].Indent, entries[2].Indent})
	for _, e := range entries {
		assert.False(t, e.Active)
	}

	f.intersect(t, "setup")
	entries = f.ctrl.Entries()
	assert.False(t, entries[0].Active)
	assert.True(t, entries[1].Active)
	assert.False(t, entries[2].Active)
}

func TestRender(t *testing.T) {
	f := newFixture(t, `<article id="tabi-article"><h1>Intro &amp; <em>More</em></h1><h2>Setup</h2></article>`)
	f.intersect(t, "setup")

	out := render(t, f.ctrl)
	assert.Contains(t, out, `<nav class="tabi-toc"`)
	assert.Contains(t, out, `href="#intro-more"`)
	assert.Contains(t, out, `Intro &amp; More`)
	assert.Contains(t, out, `<li class="tabi-toc-entry is-active" data-level="2"`)
	assert.Contains(t, out, `calc(1 * var(--tabi-toc-indent`)
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("is-active")))
}

func TestActivateScrollsAndReplacesHash(t *testing.T) {
	f := newFixture(t, `<article id="tabi-article"><h1>Intro</h1><h2>Setup</h2></article>`)

	f.ctrl.Activate("setup")

	require.Len(t, f.win.Scrolls(), 1)
	assert.Equal(t, "setup", f.win.Scrolls()[0].ID())
	assert.Equal(t, "#setup", f.win.Hash())
	assert.Equal(t, 1, f.win.HistoryLength())

	// The active heading only moves once the scroll produces an
	// intersection.
	_, ok := f.obs.Active()
	assert.False(t, ok)
}

func TestActivateMissingTargetIsSilent(t *testing.T) {
	f := newFixture(t, `<article id="tabi-article"><h1>Intro</h1></article>`)

	f.ctrl.Activate("does-not-exist")
	f.ctrl.Activate("")

	assert.Empty(t, f.win.Scrolls())
	assert.Equal(t, "", f.win.Hash())
}

func TestRepeatedActivationIsNotDebounced(t *testing.T) {
	f := newFixture(t, `<article id="tabi-article"><h1>Intro</h1><h2>Setup</h2></article>`)

	f.ctrl.Activate("intro")
	f.ctrl.Activate("intro")
	f.ctrl.Activate("setup")

	assert.Len(t, f.win.Scrolls(), 3)
	assert.Equal(t, "#setup", f.win.Hash())
}

func TestOnChangeAndClose(t *testing.T) {
	f := newFixture(t, `<article id="tabi-article"><h1>Intro</h1><h2>Setup</h2></article>`)

	changes := 0
	cancel := f.ctrl.OnChange(func() { changes++ })
	f.intersect(t, "intro")
	f.intersect(t, "setup")
	assert.Equal(t, 2, changes)

	cancel()
	f.intersect(t, "intro")
	assert.Equal(t, 2, changes)

	f.ctrl.OnChange(func() { changes++ })
	f.ctrl.Close()
	f.intersect(t, "setup")
	assert.Equal(t, 2, changes)
}
