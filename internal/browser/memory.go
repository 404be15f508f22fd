package browser

import (
	"sort"

	"github.com/conneroisu/tabi/internal/dom"
)

// Memory is an in-memory browsing context. It implements every capability
// in this package and exposes methods to drive events (resize, key presses,
// intersection batches, paint frames). Like the page it stands in for, it
// is single-threaded and not safe for concurrent use.
type Memory struct {
	path    string
	hash    string
	history int

	width   int
	queries []*memoryQuery

	nextID int
	keys   map[int]func(string)
	frames map[int]func()
	order  []int

	observers []*memoryObserver
	lastOpts  ObserverOptions
	hasOpts   bool
	scrolls   []dom.Element

	navBounds    Rect
	navScrollTop float64
	navLinks     map[string]Rect
	navScrolls   []float64
}

var (
	_ Location     = (*Memory)(nil)
	_ MediaQueries = (*Memory)(nil)
	_ Keyboard     = (*Memory)(nil)
	_ Scroller     = (*Memory)(nil)
	_ Frames       = (*Memory)(nil)
	_ Visibility   = (*Memory)(nil)
	_ ScrollRegion = (*Memory)(nil)
)

// NewMemory creates a context showing path in a viewport width px wide.
func NewMemory(path string, width int) *Memory {
	return &Memory{
		path:     path,
		history:  1,
		width:    width,
		keys:     make(map[int]func(string)),
		frames:   make(map[int]func()),
		navLinks: make(map[string]Rect),
	}
}

func (m *Memory) id() int {
	m.nextID++
	return m.nextID
}

// Pathname implements Location.
func (m *Memory) Pathname() string { return m.path }

// ReplaceHash implements Location.
func (m *Memory) ReplaceHash(hash string) { m.hash = hash }

// Hash returns the current fragment, including the leading '#'.
func (m *Memory) Hash() string { return m.hash }

// HistoryLength is the number of history entries. ReplaceHash never grows it.
func (m *Memory) HistoryLength() int { return m.history }

// Width returns the viewport width.
func (m *Memory) Width() int { return m.width }

type memoryQuery struct {
	m        *Memory
	minWidth int
	subs     map[int]func(bool)
}

func (q *memoryQuery) Matches() bool { return q.m.width >= q.minWidth }

func (q *memoryQuery) Subscribe(fn func(bool)) Cancel {
	id := q.m.id()
	q.subs[id] = fn
	return func() { delete(q.subs, id) }
}

// MatchMedia implements MediaQueries.
func (m *Memory) MatchMedia(minWidth int) MediaQuery {
	q := &memoryQuery{m: m, minWidth: minWidth, subs: make(map[int]func(bool))}
	m.queries = append(m.queries, q)
	return q
}

// Resize changes the viewport width and notifies every query whose result
// flipped.
func (m *Memory) Resize(width int) {
	before := make([]bool, len(m.queries))
	for i, q := range m.queries {
		before[i] = q.Matches()
	}
	m.width = width
	for i, q := range m.queries {
		now := q.Matches()
		if now == before[i] {
			continue
		}
		for _, id := range sortedKeys(q.subs) {
			if fn, ok := q.subs[id]; ok {
				fn(now)
			}
		}
	}
}

// OnKeyDown implements Keyboard.
func (m *Memory) OnKeyDown(fn func(string)) Cancel {
	id := m.id()
	m.keys[id] = fn
	return func() { delete(m.keys, id) }
}

// KeyDown dispatches a keydown event.
func (m *Memory) KeyDown(key string) {
	for _, id := range sortedKeys(m.keys) {
		if fn, ok := m.keys[id]; ok {
			fn(key)
		}
	}
}

// ScrollToElement implements Scroller.
func (m *Memory) ScrollToElement(el dom.Element) {
	m.scrolls = append(m.scrolls, el)
}

// Scrolls returns every element scrolled to, oldest first.
func (m *Memory) Scrolls() []dom.Element { return m.scrolls }

// RequestFrame implements Frames.
func (m *Memory) RequestFrame(fn func()) Cancel {
	id := m.id()
	m.frames[id] = fn
	m.order = append(m.order, id)
	return func() { delete(m.frames, id) }
}

// FlushFrames runs the callbacks queued so far and returns how many ran.
// Callbacks requested while flushing wait for the next flush.
func (m *Memory) FlushFrames() int {
	pending := m.order
	m.order = nil
	ran := 0
	for _, id := range pending {
		fn, ok := m.frames[id]
		if !ok {
			continue
		}
		delete(m.frames, id)
		fn()
		ran++
	}
	return ran
}

// PendingFrames is the number of frame callbacks not yet run.
func (m *Memory) PendingFrames() int { return len(m.frames) }

type memoryObserver struct {
	m       *Memory
	opts    ObserverOptions
	fn      func([]IntersectionEntry)
	targets map[dom.Element]bool
}

func (o *memoryObserver) Observe(el dom.Element)   { o.targets[el] = true }
func (o *memoryObserver) Unobserve(el dom.Element) { delete(o.targets, el) }

// Disconnect drops every target and detaches the observer from the host.
func (o *memoryObserver) Disconnect() {
	o.targets = make(map[dom.Element]bool)
	obs := o.m.observers
	for i, other := range obs {
		if other == o {
			o.m.observers = append(obs[:i:i], obs[i+1:]...)
			return
		}
	}
}

// NewIntersectionObserver implements Visibility.
func (m *Memory) NewIntersectionObserver(opts ObserverOptions, fn func([]IntersectionEntry)) IntersectionObserver {
	o := &memoryObserver{m: m, opts: opts, fn: fn, targets: make(map[dom.Element]bool)}
	m.observers = append(m.observers, o)
	m.lastOpts, m.hasOpts = opts, true
	return o
}

// Intersect delivers one batch, in the given order, to every observer
// watching at least one of the targets.
func (m *Memory) Intersect(entries ...IntersectionEntry) {
	for _, o := range m.observers {
		var batch []IntersectionEntry
		for _, e := range entries {
			if o.targets[e.Target] {
				batch = append(batch, e)
			}
		}
		if len(batch) > 0 {
			o.fn(batch)
		}
	}
}

// Observed is the number of elements currently watched across all
// observers.
func (m *Memory) Observed() int {
	n := 0
	for _, o := range m.observers {
		n += len(o.targets)
	}
	return n
}

// LastObserverOptions returns the options of the most recently created
// observer.
func (m *Memory) LastObserverOptions() (ObserverOptions, bool) {
	return m.lastOpts, m.hasOpts
}

// Observers is the number of attached intersection observers.
func (m *Memory) Observers() int { return len(m.observers) }

// Listeners is the number of live key and media-query subscriptions.
func (m *Memory) Listeners() int {
	n := len(m.keys)
	for _, q := range m.queries {
		n += len(q.subs)
	}
	return n
}

// SetNavRegion lays out the navigation region. links maps hrefs to their
// offsets within the scrollable content.
func (m *Memory) SetNavRegion(bounds Rect, links map[string]Rect) {
	m.navBounds = bounds
	m.navLinks = links
}

// SetNavScrollTop records where the region is currently scrolled to without
// counting it as a scroll request.
func (m *Memory) SetNavScrollTop(top float64) { m.navScrollTop = top }

// Bounds implements ScrollRegion.
func (m *Memory) Bounds() Rect { return m.navBounds }

// ScrollTop implements ScrollRegion.
func (m *Memory) ScrollTop() float64 { return m.navScrollTop }

// LinkBounds implements ScrollRegion.
func (m *Memory) LinkBounds(href string) (Rect, bool) {
	off, ok := m.navLinks[href]
	if !ok {
		return Rect{}, false
	}
	shift := m.navBounds.Top - m.navScrollTop
	return Rect{Top: off.Top + shift, Bottom: off.Bottom + shift}, true
}

// ScrollTo implements ScrollRegion. The memory region jumps immediately.
func (m *Memory) ScrollTo(top float64) {
	m.navScrollTop = top
	m.navScrolls = append(m.navScrolls, top)
}

// NavScrolls returns every offset the region was scrolled to.
func (m *Memory) NavScrolls() []float64 { return m.navScrolls }

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
