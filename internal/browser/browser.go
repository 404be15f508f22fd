// Package browser declares the browsing-context capabilities the
// controllers are given instead of reading ambient globals: the location,
// media queries, keyboard, scrolling, animation frames, intersection
// observers and the geometry of the navigation region.
//
// Every subscription returns a cancel function. Controllers call all of
// them on teardown.
package browser

import (
	"fmt"

	"github.com/conneroisu/tabi/internal/dom"
)

// Cancel removes a subscription. Calling it more than once is harmless.
type Cancel func()

// Location is the browsing context's current URL.
type Location interface {
	Pathname() string
	// ReplaceHash sets the fragment of the current history entry without
	// navigating and without pushing a new entry.
	ReplaceHash(hash string)
}

// MediaQuery is a live (min-width: N px) query.
type MediaQuery interface {
	Matches() bool
	Subscribe(fn func(matches bool)) Cancel
}

// MediaQueries creates media queries.
type MediaQueries interface {
	MatchMedia(minWidth int) MediaQuery
}

// Keyboard delivers keydown events by key name ("Escape", "Enter", ...).
type Keyboard interface {
	OnKeyDown(fn func(key string)) Cancel
}

// Scroller scrolls the window.
type Scroller interface {
	// ScrollToElement smoothly scrolls so el's top meets the viewport start.
	// A new call retargets any scroll still in flight.
	ScrollToElement(el dom.Element)
}

// Frames defers work to the next paint.
type Frames interface {
	RequestFrame(fn func()) Cancel
}

// ObserverOptions configures an intersection observer's trigger region.
type ObserverOptions struct {
	// TopMarginPx is excluded from the top of the viewport.
	TopMarginPx int
	// BottomMarginPercent of the viewport height is excluded from the bottom.
	BottomMarginPercent int
	// Threshold is the visible ratio required before an entry reports
	// intersecting; 1 means fully visible.
	Threshold float64
}

// RootMargin renders the options in CSS margin syntax, the form the page
// script hands to IntersectionObserver.
func (o ObserverOptions) RootMargin() string {
	return fmt.Sprintf("-%dpx 0px -%d%% 0px", o.TopMarginPx, o.BottomMarginPercent)
}

// IntersectionEntry is one element's visibility change.
type IntersectionEntry struct {
	Target       dom.Element
	Intersecting bool
}

// IntersectionObserver watches elements against a trigger region.
type IntersectionObserver interface {
	Observe(el dom.Element)
	Unobserve(el dom.Element)
	Disconnect()
}

// Visibility creates intersection observers. Callbacks receive entries in
// whatever order the host delivers them.
type Visibility interface {
	NewIntersectionObserver(opts ObserverOptions, fn func([]IntersectionEntry)) IntersectionObserver
}

// Rect is a vertical extent in viewport coordinates.
type Rect struct {
	Top    float64
	Bottom float64
}

// Height returns the extent's height.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Contains reports whether inner lies fully within r.
func (r Rect) Contains(inner Rect) bool {
	return inner.Top >= r.Top && inner.Bottom <= r.Bottom
}

// ScrollRegion is the independently scrollable navigation region.
type ScrollRegion interface {
	Bounds() Rect
	ScrollTop() float64
	// LinkBounds locates the link whose href attribute equals href.
	LinkBounds(href string) (Rect, bool)
	// ScrollTo smoothly scrolls the region to the given offset.
	ScrollTo(top float64)
}
