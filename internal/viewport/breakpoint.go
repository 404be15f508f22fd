// Package viewport exposes whether the viewport is wide (desktop) or narrow
// (mobile) and notifies when that changes.
package viewport

import "github.com/conneroisu/tabi/internal/browser"

// DefaultMinWidth is the desktop threshold in CSS pixels.
const DefaultMinWidth = 1024

// Breakpoint is a reactive "is the viewport wide" signal backed by a single
// (min-width) media query installed at construction.
type Breakpoint struct {
	query    browser.MediaQuery
	cancel   browser.Cancel
	wide     bool
	minWidth int

	nextSub int
	subs    map[int]func(bool)
	order   []int
}

// New reads the initial value synchronously and subscribes for changes.
func New(mq browser.MediaQueries, minWidth int) *Breakpoint {
	if minWidth <= 0 {
		minWidth = DefaultMinWidth
	}
	b := &Breakpoint{
		query:    mq.MatchMedia(minWidth),
		minWidth: minWidth,
		subs:     make(map[int]func(bool)),
	}
	b.wide = b.query.Matches()
	b.cancel = b.query.Subscribe(b.handle)
	return b
}

func (b *Breakpoint) handle(matches bool) {
	if b.subs == nil || matches == b.wide {
		return
	}
	b.wide = matches
	for _, k := range b.order {
		if fn, ok := b.subs[k]; ok {
			fn(matches)
		}
	}
}

// IsWide reports the latest known value.
func (b *Breakpoint) IsWide() bool { return b.wide }

// MinWidth is the threshold the query was installed with.
func (b *Breakpoint) MinWidth() int { return b.minWidth }

// Subscribe registers fn for every change. It is not called with the
// current value.
func (b *Breakpoint) Subscribe(fn func(wide bool)) browser.Cancel {
	if b.subs == nil {
		return func() {}
	}
	b.nextSub++
	k := b.nextSub
	b.subs[k] = fn
	b.order = append(b.order, k)
	return func() {
		delete(b.subs, k)
		for i, v := range b.order {
			if v == k {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Close removes the media-query listener and every subscriber.
func (b *Breakpoint) Close() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.subs = nil
	b.order = nil
}
