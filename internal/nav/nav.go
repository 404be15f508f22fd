// Package nav models the site's navigation tree: leaf items and one level
// of named groups, loaded from an externally authored YAML file.
package nav

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tabierrors "github.com/conneroisu/tabi/internal/errors"
	"gopkg.in/yaml.v3"
)

// Item is a leaf navigation entry.
type Item struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
}

// Group is a named collection of items. Groups do not nest.
type Group struct {
	Title string `yaml:"title" json:"title"`
	Items []Item `yaml:"items" json:"items"`
}

// Entry is either an Item or a Group. Exactly one field is set.
type Entry struct {
	Item  *Item
	Group *Group
}

// ItemEntry wraps an item.
func ItemEntry(label, href string) Entry {
	return Entry{Item: &Item{Label: label, Href: href}}
}

// GroupEntry wraps a group.
func GroupEntry(title string, items ...Item) Entry {
	return Entry{Group: &Group{Title: title, Items: items}}
}

// IsGroup reports whether the entry is a group.
func (e Entry) IsGroup() bool { return e.Group != nil }

type rawEntry struct {
	Label string       `yaml:"label"`
	Href  string       `yaml:"href"`
	Title *string      `yaml:"title"`
	Items *[]yaml.Node `yaml:"items"`
}

// UnmarshalYAML discriminates on shape: a mapping with both title and items
// is a group, anything else is an item.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	var raw rawEntry
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Title == nil || raw.Items == nil {
		e.Item = &Item{Label: raw.Label, Href: raw.Href}
		e.Group = nil
		return nil
	}

	g := &Group{Title: *raw.Title, Items: make([]Item, 0, len(*raw.Items))}
	for i := range *raw.Items {
		child := &(*raw.Items)[i]
		var probe rawEntry
		if err := child.Decode(&probe); err != nil {
			return err
		}
		if probe.Title != nil && probe.Items != nil {
			return fmt.Errorf("line %d: group %q nests group %q; only one level of grouping is allowed",
				child.Line, *raw.Title, *probe.Title)
		}
		g.Items = append(g.Items, Item{Label: probe.Label, Href: probe.Href})
	}
	e.Group = g
	e.Item = nil
	return nil
}

// MarshalYAML writes the entry back in the same shape it was read.
func (e Entry) MarshalYAML() (interface{}, error) {
	if e.Group != nil {
		return e.Group, nil
	}
	return e.Item, nil
}

type file struct {
	Entries []Entry `yaml:"entries"`
}

// Parse decodes a navigation document: a top-level "entries" list.
func Parse(data []byte) ([]Entry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, tabierrors.NewValidationError(tabierrors.ErrCodeNavInvalid, err.Error())
	}
	if err := Validate(f.Entries); err != nil {
		return nil, err
	}
	return f.Entries, nil
}

// Load reads and parses a navigation file.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tabierrors.NewIOError(tabierrors.ErrCodeFileNotFound, "cannot read navigation file", err).WithFile(path)
	}
	entries, err := Parse(data)
	if err != nil {
		var te *tabierrors.TabiError
		if errors.As(err, &te) {
			te.WithFile(path)
		}
		return nil, err
	}
	return entries, nil
}

// Validate checks that items carry a label and an href and that groups carry
// a title.
func Validate(entries []Entry) error {
	var vec tabierrors.ValidationErrorCollection
	checkItem := func(field string, it Item) {
		if strings.TrimSpace(it.Label) == "" {
			vec.AddField(field+".label", it.Label, "label is required")
		}
		if strings.TrimSpace(it.Href) == "" {
			vec.AddField(field+".href", it.Href, "href is required")
		}
	}
	for i, e := range entries {
		field := fmt.Sprintf("entries[%d]", i)
		switch {
		case e.Group != nil:
			if strings.TrimSpace(e.Group.Title) == "" {
				vec.AddField(field+".title", e.Group.Title, "title is required")
			}
			for j, it := range e.Group.Items {
				checkItem(fmt.Sprintf("%s.items[%d]", field, j), it)
			}
		case e.Item != nil:
			checkItem(field, *e.Item)
		default:
			vec.AddField(field, nil, "entry is empty")
		}
	}
	return vec.Err(tabierrors.ErrCodeNavInvalid)
}

// Flatten lists every leaf item in display order.
func Flatten(entries []Entry) []Item {
	var out []Item
	for _, e := range entries {
		switch {
		case e.Group != nil:
			out = append(out, e.Group.Items...)
		case e.Item != nil:
			out = append(out, *e.Item)
		}
	}
	return out
}
