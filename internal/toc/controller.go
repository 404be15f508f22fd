// Package toc renders an article's outline as a table of contents and
// navigates to a heading when an entry is activated.
//
// The controller never writes the active heading itself. Activating an
// entry scrolls the page; the intersection events that scroll produces
// update the active heading through the headings.Observer.
package toc

import (
	"github.com/conneroisu/tabi/internal/browser"
	"github.com/conneroisu/tabi/internal/dom"
	"github.com/conneroisu/tabi/internal/headings"
)

// Entry is one rendered line of the table of contents.
type Entry struct {
	headings.Record
	// Indent is Level-1.
	Indent int  `json:"indent"`
	Active bool `json:"active"`
}

// Controller binds an outline to the document and location.
type Controller struct {
	obs      *headings.Observer
	doc      dom.Document
	scroller browser.Scroller
	loc      browser.Location

	cancel   browser.Cancel
	nextSub  int
	onChange map[int]func()
}

// New wires a controller to obs. Build must be called on obs separately.
func New(obs *headings.Observer, doc dom.Document, scroller browser.Scroller, loc browser.Location) *Controller {
	c := &Controller{
		obs:      obs,
		doc:      doc,
		scroller: scroller,
		loc:      loc,
		onChange: make(map[int]func()),
	}
	c.cancel = obs.Subscribe(func(string, bool) { c.changed() })
	return c
}

func (c *Controller) changed() {
	for k := 1; k <= c.nextSub; k++ {
		if fn, ok := c.onChange[k]; ok {
			fn()
		}
	}
}

// Entries returns the outline with indentation and the active mark.
func (c *Controller) Entries() []Entry {
	outline := c.obs.Outline()
	if len(outline) == 0 {
		return nil
	}
	active, hasActive := c.obs.Active()
	entries := make([]Entry, len(outline))
	for i, r := range outline {
		entries[i] = Entry{
			Record: r,
			Indent: r.Level - 1,
			Active: hasActive && r.ID == active,
		}
	}
	return entries
}

// Empty reports whether there is nothing to render.
func (c *Controller) Empty() bool { return len(c.obs.Outline()) == 0 }

// Activate scrolls to the heading with the given id and replaces the
// current history entry's hash with it. An unknown id does nothing.
// Repeated calls each restart the scroll.
func (c *Controller) Activate(id string) {
	el, ok := c.doc.ElementByID(id)
	if !ok {
		return
	}
	c.scroller.ScrollToElement(el)
	c.loc.ReplaceHash("#" + id)
}

// OnChange registers fn to run whenever the active heading changes, which
// is when the rendered list needs refreshing.
func (c *Controller) OnChange(fn func()) browser.Cancel {
	c.nextSub++
	k := c.nextSub
	c.onChange[k] = fn
	return func() { delete(c.onChange, k) }
}

// Close detaches from the observer.
func (c *Controller) Close() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.onChange = make(map[int]func())
}
