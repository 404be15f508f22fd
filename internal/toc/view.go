package toc

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// View renders entries as the table of contents. An empty list renders
// nothing at all, not even the wrapping element.
func View(entries []Entry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(entries) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, `<nav class="tabi-toc" aria-label="On this page"><ul>`); err != nil {
			return err
		}
		for _, e := range entries {
			class := "tabi-toc-entry"
			current := ""
			if e.Active {
				class += " is-active"
				current = ` aria-current="location"`
			}
			id := templ.EscapeString(e.ID)
			_, err := fmt.Fprintf(w,
				`<li class="%s" data-level="%d" style="padding-left: calc(%d * var(--tabi-toc-indent, 0.75rem))"><a href="#%s" data-toc-id="%s"%s>%s</a></li>`,
				class, e.Level, e.Indent, id, id, current, templ.EscapeString(e.Text))
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul></nav>`)
		return err
	})
}

// Component renders the controller's current entries.
func (c *Controller) Component() templ.Component {
	return View(c.Entries())
}
