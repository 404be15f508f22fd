// Package dom is the narrow view of the rendered document that the
// synchronization core needs: elements with ids and text, lookup by id, and
// the heading elements of a container in document order.
//
// The HTML implementation is backed by goquery so that id assignment is a
// real mutation of the parsed tree and can be serialized back out.
package dom

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HeadingSelector matches every heading level.
const HeadingSelector = "h1, h2, h3, h4, h5, h6"

// Element is a single node of the rendered document.
type Element interface {
	ID() string
	SetID(id string)
	Text() string
	Tag() string
}

// Document is the part of the browsing context's document the controllers
// query.
type Document interface {
	ElementByID(id string) (Element, bool)
	Headings(container Element) []Element
}

// HeadingLevel returns 1..6 for h1..h6 and 0 for anything else.
func HeadingLevel(tag string) int {
	if len(tag) != 2 || (tag[0] != 'h' && tag[0] != 'H') {
		return 0
	}
	if tag[1] < '1' || tag[1] > '6' {
		return 0
	}
	return int(tag[1] - '0')
}

// HTMLDocument is a Document over a parsed HTML tree.
type HTMLDocument struct {
	doc      *goquery.Document
	elements map[*html.Node]*htmlElement
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &HTMLDocument{doc: doc, elements: make(map[*html.Node]*htmlElement)}, nil
}

// ParseString is Parse for an in-memory string.
func ParseString(s string) (*HTMLDocument, error) {
	return Parse(strings.NewReader(s))
}

// wrap returns the same Element for the same node so callers can use
// elements as map keys across queries.
func (d *HTMLDocument) wrap(n *html.Node) *htmlElement {
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &htmlElement{sel: d.doc.FindNodes(n)}
	d.elements[n] = el
	return el
}

// ElementByID returns the first element in document order whose id
// attribute equals id. The empty id never matches.
func (d *HTMLDocument) ElementByID(id string) (Element, bool) {
	if id == "" {
		return nil, false
	}
	match := d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
	if match.Length() == 0 {
		return nil, false
	}
	return d.wrap(match.Get(0)), true
}

// Headings returns the h1..h6 descendants of container in document order.
func (d *HTMLDocument) Headings(container Element) []Element {
	c, ok := container.(*htmlElement)
	if !ok {
		return nil
	}
	var out []Element
	c.sel.Find(HeadingSelector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, d.wrap(s.Get(0)))
	})
	return out
}

// OuterHTML serializes a single element including any ids assigned to its
// descendants.
func (d *HTMLDocument) OuterHTML(el Element) (string, error) {
	e, ok := el.(*htmlElement)
	if !ok {
		return "", nil
	}
	return goquery.OuterHtml(e.sel)
}

// Render writes the whole document.
func (d *HTMLDocument) Render(w io.Writer) error {
	for _, n := range d.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return err
		}
	}
	return nil
}

// String renders the whole document to a string.
func (d *HTMLDocument) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

type htmlElement struct {
	sel *goquery.Selection
}

func (e *htmlElement) ID() string {
	v, _ := e.sel.Attr("id")
	return v
}

func (e *htmlElement) SetID(id string) {
	e.sel.SetAttr("id", id)
}

func (e *htmlElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e *htmlElement) Tag() string {
	return goquery.NodeName(e.sel)
}
