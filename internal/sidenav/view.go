package sidenav

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/conneroisu/tabi/internal/nav"
)

// RegionID is the id of the scrollable navigation region.
const RegionID = "tabi-sidenav"

// View renders the drawer, its toggle button and, only while open, the
// mobile overlay.
func View(c *Controller) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		open := c.IsOpen()
		ew := &errWriter{w: w}

		ew.printf(`<button type="button" class="tabi-nav-toggle" data-nav-toggle aria-controls="%s" aria-expanded="%t">Menu</button>`,
			RegionID, open)
		ew.printf(`<aside class="tabi-sidenav is-%s" data-state="%s">`, c.State(), c.State())
		ew.printf(`<nav id="%s" class="tabi-sidenav-scroll" aria-label="Site"><ul>`, RegionID)
		for _, e := range c.Entries() {
			switch {
			case e.Group != nil:
				ew.printf(`<li class="tabi-nav-group"><span class="tabi-nav-group-title">%s</span><ul>`,
					templ.EscapeString(e.Group.Title))
				for _, it := range e.Group.Items {
					writeItem(ew, c, it)
				}
				ew.printf(`</ul></li>`)
			case e.Item != nil:
				writeItem(ew, c, *e.Item)
			}
		}
		ew.printf(`</ul></nav></aside>`)
		if open {
			ew.printf(`<div class="tabi-nav-overlay" data-nav-overlay></div>`)
		}
		return ew.err
	})
}

func writeItem(ew *errWriter, c *Controller, it nav.Item) {
	class := "tabi-nav-link"
	current := ""
	if c.IsActive(it.Href) {
		class += " is-active"
		current = ` aria-current="page"`
	}
	ew.printf(`<li><a class="%s" href="%s"%s>%s</a></li>`,
		class, templ.EscapeString(it.Href), current, templ.EscapeString(it.Label))
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// Component renders the controller's current state.
func (c *Controller) Component() templ.Component {
	return View(c)
}
