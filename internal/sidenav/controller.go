// Package sidenav owns the navigation drawer: its open/closed state
// machine, which entry matches the current page, and keeping that entry
// visible inside the scrollable navigation region.
package sidenav

import (
	"context"

	"github.com/conneroisu/tabi/internal/browser"
	"github.com/conneroisu/tabi/internal/logging"
	"github.com/conneroisu/tabi/internal/nav"
	"github.com/conneroisu/tabi/internal/viewport"
)

// State of the drawer.
type State int

const (
	Closed State = iota
	Open
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// EscapeKey is the key name that closes an open drawer.
const EscapeKey = "Escape"

// Deps are the browsing-context capabilities the controller uses. Region
// may be nil, in which case the active link is never scrolled into view.
type Deps struct {
	Location   browser.Location
	Breakpoint *viewport.Breakpoint
	Keyboard   browser.Keyboard
	Frames     browser.Frames
	Region     browser.ScrollRegion
	Logger     logging.Logger
}

// Controller is the drawer state machine. It must only be used from the
// page's event loop.
type Controller struct {
	entries []nav.Entry
	deps    Deps
	log     logging.Logger

	state       State
	currentPath string
	revealed    string
	hasRevealed bool

	cancels     []browser.Cancel
	frameCancel browser.Cancel
	closed      bool

	nextSub  int
	onChange map[int]func(State)
}

// New mounts the controller. The initial state follows the breakpoint's
// first read: open when wide, closed when narrow. The current path is read
// from the location once, here.
func New(entries []nav.Entry, deps Deps) *Controller {
	log := deps.Logger
	if log == nil {
		log = logging.Discard()
	}
	c := &Controller{
		entries:  entries,
		deps:     deps,
		log:      log.WithComponent("sidenav"),
		onChange: make(map[int]func(State)),
	}

	c.state = Closed
	if deps.Breakpoint.IsWide() {
		c.state = Open
	}

	c.cancels = append(c.cancels, deps.Breakpoint.Subscribe(c.breakpointChanged))
	if deps.Keyboard != nil {
		c.cancels = append(c.cancels, deps.Keyboard.OnKeyDown(c.HandleKey))
	}

	c.setCurrentPath(deps.Location.Pathname())
	return c
}

// State returns the drawer state.
func (c *Controller) State() State { return c.state }

// IsOpen reports whether the drawer is open. On wide viewports the drawer
// is always visible whatever this returns; the flag only governs the
// mobile overlay.
func (c *Controller) IsOpen() bool { return c.state == Open }

// CurrentPath is the path captured at mount.
func (c *Controller) CurrentPath() string { return c.currentPath }

// Entries returns the navigation tree.
func (c *Controller) Entries() []nav.Entry { return c.entries }

// IsActive reports whether href names the current page. Matching is exact
// on normalized paths.
func (c *Controller) IsActive(href string) bool {
	return nav.Matches(c.currentPath, href)
}

// ActiveHref returns the href of the first item matching the current page.
func (c *Controller) ActiveHref() (string, bool) {
	for _, it := range nav.Flatten(c.entries) {
		if c.IsActive(it.Href) {
			return it.Href, true
		}
	}
	return "", false
}

// Toggle flips the drawer at any width.
func (c *Controller) Toggle() {
	if c.closed {
		return
	}
	if c.state == Open {
		c.transition(Closed, "toggle")
	} else {
		c.transition(Open, "toggle")
	}
}

// HandleKey closes an open drawer on Escape.
func (c *Controller) HandleKey(key string) {
	if c.closed || key != EscapeKey || c.state != Open {
		return
	}
	c.transition(Closed, "escape")
}

// OverlayClick closes the drawer. The overlay only exists while open.
func (c *Controller) OverlayClick() {
	if c.closed || c.state != Open {
		return
	}
	c.transition(Closed, "overlay")
}

// breakpointChanged forces the state to match the new breakpoint,
// discarding any manual toggle.
func (c *Controller) breakpointChanged(wide bool) {
	if c.closed {
		return
	}
	if wide {
		c.transition(Open, "breakpoint")
	} else {
		c.transition(Closed, "breakpoint")
	}
}

func (c *Controller) transition(to State, cause string) {
	if c.state == to {
		return
	}
	from := c.state
	c.state = to
	c.log.Debug(context.Background(), "drawer transition", "from", from.String(), "to", to.String(), "cause", cause)
	for k := 1; k <= c.nextSub; k++ {
		if fn, ok := c.onChange[k]; ok {
			fn(to)
		}
	}
}

// setCurrentPath records the page path and, when it differs from the last
// one revealed, schedules a single scroll-into-view for the next frame.
func (c *Controller) setCurrentPath(path string) {
	c.currentPath = path
	if c.hasRevealed && nav.Normalize(path) == c.revealed {
		return
	}
	c.hasRevealed = true
	c.revealed = nav.Normalize(path)
	if c.deps.Frames == nil || c.deps.Region == nil {
		return
	}
	if c.frameCancel != nil {
		c.frameCancel()
	}
	c.frameCancel = c.deps.Frames.RequestFrame(func() {
		c.frameCancel = nil
		if !c.closed {
			c.reveal()
		}
	})
}

// reveal centres the active link in the navigation region when it is not
// already fully visible.
func (c *Controller) reveal() {
	href, ok := c.ActiveHref()
	if !ok {
		return
	}
	region := c.deps.Region
	link, ok := region.LinkBounds(href)
	if !ok {
		return
	}
	bounds := region.Bounds()
	if bounds.Contains(link) {
		return
	}
	target := ScrollTarget(region.ScrollTop(), bounds, link)
	c.log.Debug(context.Background(), "revealing active link", "href", href, "scroll_top", target)
	region.ScrollTo(target)
}

// ScrollTarget is the region offset that vertically centres link inside
// bounds, given the region's current offset. It never goes negative.
func ScrollTarget(scrollTop float64, bounds, link browser.Rect) float64 {
	target := scrollTop + (link.Top - bounds.Top) - bounds.Height()/2 + link.Height()/2
	if target < 0 {
		return 0
	}
	return target
}

// OnChange registers fn for every state transition.
func (c *Controller) OnChange(fn func(State)) browser.Cancel {
	c.nextSub++
	k := c.nextSub
	c.onChange[k] = fn
	return func() { delete(c.onChange, k) }
}

// Close removes every listener and any pending frame.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	if c.frameCancel != nil {
		c.frameCancel()
		c.frameCancel = nil
	}
	c.onChange = make(map[int]func(State))
}
