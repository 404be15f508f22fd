// Package headings builds the outline of a rendered article and tracks which
// heading the reader is looking at.
//
// An Observer owns the article's heading elements: it assigns ids to the
// ones that lack them, registers every heading with an intersection
// observer, and turns intersection batches into a single active heading id.
package headings

import (
	"context"
	"sort"

	"github.com/conneroisu/tabi/internal/browser"
	"github.com/conneroisu/tabi/internal/dom"
	"github.com/conneroisu/tabi/internal/logging"
)

// DefaultContainerID is the id of the element that wraps article content.
const DefaultContainerID = "tabi-article"

// Record is one heading of the outline.
type Record struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// DefaultObserverOptions reserves 110px for the sticky header and ignores
// the bottom 66% of the viewport, so a heading only counts once it is fully
// inside the upper third.
func DefaultObserverOptions() browser.ObserverOptions {
	return browser.ObserverOptions{
		TopMarginPx:         110,
		BottomMarginPercent: 66,
		Threshold:           1,
	}
}

// Observer produces an article outline and a live active-heading signal.
// It must only be used from the page's event loop.
type Observer struct {
	doc  dom.Document
	vis  browser.Visibility
	opts browser.ObserverOptions
	log  logging.Logger

	containerID string
	mounted     bool
	generation  int

	outline  []Record
	index    map[dom.Element]int
	watcher  browser.IntersectionObserver
	elements []dom.Element

	active    string
	hasActive bool

	nextSub int
	subs    map[int]func(id string, ok bool)
}

// NewObserver creates an observer over doc. A nil logger discards.
func NewObserver(doc dom.Document, vis browser.Visibility, opts browser.ObserverOptions, log logging.Logger) *Observer {
	if log == nil {
		log = logging.Discard()
	}
	return &Observer{
		doc:  doc,
		vis:  vis,
		opts: opts,
		log:  log.WithComponent("headings"),
		subs: make(map[int]func(string, bool)),
	}
}

// Build scans the container's headings and starts tracking them. Calling it
// again with the same container id returns the existing outline; a new id
// tears down the previous registration first. A missing container yields an
// empty outline and a warning.
func (o *Observer) Build(containerID string) []Record {
	if o.mounted && containerID == o.containerID {
		return o.Outline()
	}
	o.teardown()
	o.mounted = true
	o.containerID = containerID

	container, ok := o.doc.ElementByID(containerID)
	if !ok {
		o.log.Warn(context.Background(), nil, "article container not found", "container", containerID)
		return nil
	}

	elements := o.doc.Headings(container)
	o.outline = make([]Record, 0, len(elements))
	o.index = make(map[dom.Element]int, len(elements))
	for _, el := range elements {
		id := el.ID()
		if id == "" {
			id = Slugify(el.Text())
			el.SetID(id)
		}
		o.index[el] = len(o.outline)
		o.outline = append(o.outline, Record{
			ID:    id,
			Text:  el.Text(),
			Level: dom.HeadingLevel(el.Tag()),
		})
	}
	o.elements = elements

	if len(elements) > 0 {
		gen := o.generation
		o.watcher = o.vis.NewIntersectionObserver(o.opts, func(entries []browser.IntersectionEntry) {
			if gen != o.generation {
				return
			}
			o.handleBatch(entries)
		})
		for _, el := range elements {
			o.watcher.Observe(el)
		}
	}

	o.log.Debug(context.Background(), "outline built", "container", containerID, "headings", len(o.outline))
	return o.Outline()
}

// handleBatch applies one intersection batch. Of the entries that are
// intersecting, the heading earliest in document order wins, whatever
// order the host delivered them in. Entries leaving the region never clear
// the active heading.
func (o *Observer) handleBatch(entries []browser.IntersectionEntry) {
	best := -1
	for _, e := range entries {
		if !e.Intersecting {
			continue
		}
		idx, ok := o.index[e.Target]
		if !ok {
			continue
		}
		if best < 0 || idx < best {
			best = idx
		}
	}
	if best < 0 {
		return
	}
	o.setActive(o.outline[best].ID, true)
}

func (o *Observer) setActive(id string, ok bool) {
	if o.hasActive == ok && o.active == id {
		return
	}
	o.active, o.hasActive = id, ok
	for _, k := range sortedSubs(o.subs) {
		if fn, live := o.subs[k]; live {
			fn(id, ok)
		}
	}
}

// teardown unregisters every heading and forgets the outline.
func (o *Observer) teardown() {
	o.generation++
	if o.watcher != nil {
		for _, el := range o.elements {
			o.watcher.Unobserve(el)
		}
		o.watcher.Disconnect()
		o.watcher = nil
	}
	o.elements = nil
	o.outline = nil
	o.index = nil
	o.mounted = false
	if o.hasActive {
		o.setActive("", false)
	}
}

// Close stops tracking and drops all subscribers.
func (o *Observer) Close() {
	o.teardown()
	o.subs = make(map[int]func(string, bool))
}

// Outline returns a copy of the current outline in document order.
func (o *Observer) Outline() []Record {
	if len(o.outline) == 0 {
		return nil
	}
	out := make([]Record, len(o.outline))
	copy(out, o.outline)
	return out
}

// ContainerID returns the container the outline was built from.
func (o *Observer) ContainerID() string { return o.containerID }

// Active returns the active heading id, if any.
func (o *Observer) Active() (string, bool) { return o.active, o.hasActive }

// Subscribe registers fn for every change of the active heading. ok is
// false when the outline was torn down.
func (o *Observer) Subscribe(fn func(id string, ok bool)) browser.Cancel {
	o.nextSub++
	k := o.nextSub
	o.subs[k] = fn
	return func() { delete(o.subs, k) }
}

func sortedSubs(m map[int]func(string, bool)) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
