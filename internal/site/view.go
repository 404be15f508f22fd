package site

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// LayoutData is everything the page shell needs.
type LayoutData struct {
	Title   string
	Path    string
	Drawer  templ.Component
	TOC     templ.Component
	Article string
}

// Layout renders the full page: header, drawer, article and table of
// contents, followed by the page script.
func Layout(d LayoutData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s</title><link rel="stylesheet" href="%s"></head>`+
			`<body data-tabi-path="%s"><header class="tabi-header">`,
			templ.EscapeString(d.Title), stylePath, templ.EscapeString(d.Path))
		if err != nil {
			return err
		}
		if err := d.Drawer.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</header><div class="tabi-layout"><main class="tabi-main">`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, d.Article); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</main><div class="tabi-aside" data-tabi-toc>`); err != nil {
			return err
		}
		if err := d.TOC.Render(ctx, w); err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, `</div></div><script src="%s" data-ws="%s" defer></script></body></html>`,
			scriptPath, wsPath)
		return err
	})
}
