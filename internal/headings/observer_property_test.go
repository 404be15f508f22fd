//go:build property
// +build property

package headings

import (
	"fmt"
	"strings"
	"testing"

	"github.com/conneroisu/tabi/internal/browser"
	"github.com/conneroisu/tabi/internal/dom"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type headingSpec struct {
	Level int
	Text  string
}

func genHeading() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 6),
		gen.RegexMatch(`^[A-Za-z][A-Za-z0-9 ]{0,12}$`),
	).Map(func(v []interface{}) headingSpec {
		return headingSpec{Level: v[0].(int), Text: v[1].(string)}
	})
}

func renderArticle(specs []headingSpec) string {
	var b strings.Builder
	b.WriteString(`<article id="tabi-article">`)
	for _, h := range specs {
		fmt.Fprintf(&b, "<h%d>%s</h%d><p>body</p>", h.Level, h.Text, h.Level)
	}
	b.WriteString(`</article>`)
	return b.String()
}

// TestOutlineProperties checks outline completeness and the at-most-one
// active heading invariant.
func TestOutlineProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("outline preserves document order and levels", prop.ForAll(
		func(specs []headingSpec) bool {
			doc, err := dom.ParseString(renderArticle(specs))
			if err != nil {
				return false
			}
			obs := NewObserver(doc, browser.NewMemory("/", 1280), DefaultObserverOptions(), nil)
			outline := obs.Build(DefaultContainerID)
			if len(outline) != len(specs) {
				return false
			}
			for i, r := range outline {
				if r.Level != specs[i].Level || r.Text != strings.TrimSpace(specs[i].Text) {
					return false
				}
				if r.ID != Slugify(specs[i].Text) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genHeading()),
	))

	properties.Property("active id is absent or one outline id", prop.ForAll(
		func(specs []headingSpec, picks []int) bool {
			doc, err := dom.ParseString(renderArticle(specs))
			if err != nil {
				return false
			}
			win := browser.NewMemory("/", 1280)
			obs := NewObserver(doc, win, DefaultObserverOptions(), nil)
			outline := obs.Build(DefaultContainerID)
			if len(outline) == 0 {
				_, ok := obs.Active()
				return !ok
			}

			container, _ := doc.ElementByID(DefaultContainerID)
			elements := doc.Headings(container)
			var batch []browser.IntersectionEntry
			for i, p := range picks {
				batch = append(batch, browser.IntersectionEntry{
					Target:       elements[p%len(elements)],
					Intersecting: i%3 != 0,
				})
			}
			win.Intersect(batch...)

			id, ok := obs.Active()
			if !ok {
				return true
			}
			for _, r := range outline {
				if r.ID == id {
					return true
				}
			}
			return false
		},
		gen.SliceOf(genHeading()),
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.Property("slugify is stable under repetition", prop.ForAll(
		func(s string) bool {
			once := Slugify(s)
			return Slugify(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
