package bridge

import (
	"context"

	"github.com/conneroisu/tabi/internal/browser"
	"github.com/conneroisu/tabi/internal/dom"
	"github.com/conneroisu/tabi/internal/headings"
	"github.com/conneroisu/tabi/internal/logging"
	"github.com/conneroisu/tabi/internal/loop"
	"github.com/conneroisu/tabi/internal/nav"
	"github.com/conneroisu/tabi/internal/sidenav"
	"github.com/conneroisu/tabi/internal/toc"
	"github.com/conneroisu/tabi/internal/viewport"
)

// Page is what a session mounts: the article document for one path and
// the site navigation.
type Page struct {
	Path string
	Doc  *dom.HTMLDocument
	Nav  []nav.Entry
}

// Options configure the controllers a session mounts.
type Options struct {
	ContainerID  string
	Observer     browser.ObserverOptions
	BreakpointPx int
}

// DefaultOptions mirrors the page defaults.
func DefaultOptions() Options {
	return Options{
		ContainerID:  headings.DefaultContainerID,
		Observer:     headings.DefaultObserverOptions(),
		BreakpointPx: viewport.DefaultMinWidth,
	}
}

// Session drives one page's controllers from browser events. The browser
// state lives in a browser.Memory mirror; anything with a visible effect is
// applied to the mirror and sent to the page as a command.
//
// All methods except Handle must run on the session's loop.
type Session struct {
	page *Page
	opts Options
	mem  *browser.Memory
	loop *loop.Loop
	send func(Command)
	log  logging.Logger

	obs        *headings.Observer
	toc        *toc.Controller
	breakpoint *viewport.Breakpoint
	drawer     *sidenav.Controller
	cancels    []browser.Cancel

	nextFrame int
	frames    map[int]*pendingFrame

	last State
}

type pendingFrame struct {
	fn     func()
	cancel browser.Cancel
}

var (
	_ browser.Location     = (*Session)(nil)
	_ browser.Scroller     = (*Session)(nil)
	_ browser.Frames       = (*Session)(nil)
	_ browser.ScrollRegion = (*Session)(nil)
)

// NewSession creates an unmounted session. send must not block.
func NewSession(page *Page, width int, opts Options, l *loop.Loop, send func(Command), log logging.Logger) *Session {
	if log == nil {
		log = logging.Discard()
	}
	return &Session{
		page:   page,
		opts:   opts,
		mem:    browser.NewMemory(page.Path, width),
		loop:   l,
		send:   send,
		log:    log.WithComponent("bridge").With("path", page.Path),
		frames: make(map[int]*pendingFrame),
	}
}

// Mount builds the outline, tells the page which headings to observe, and
// starts the drawer and table of contents.
func (s *Session) Mount() {
	s.obs = headings.NewObserver(s.page.Doc, s.mem, s.opts.Observer, s.log)
	outline := s.obs.Build(s.opts.ContainerID)
	if opts, ok := s.mem.LastObserverOptions(); ok && len(outline) > 0 {
		ids := make([]string, len(outline))
		for i, r := range outline {
			ids[i] = r.ID
		}
		s.send(Command{
			Type:       CommandObserve,
			IDs:        ids,
			RootMargin: opts.RootMargin(),
			Threshold:  opts.Threshold,
		})
	}

	s.breakpoint = viewport.New(s.mem, s.opts.BreakpointPx)
	s.drawer = sidenav.New(s.page.Nav, sidenav.Deps{
		Location:   s,
		Breakpoint: s.breakpoint,
		Keyboard:   s.mem,
		Frames:     s,
		Region:     s,
		Logger:     s.log,
	})
	s.toc = toc.New(s.obs, s.page.Doc, s, s)

	s.cancels = append(s.cancels,
		s.drawer.OnChange(func(sidenav.State) { s.pushState() }),
		s.toc.OnChange(s.pushState),
	)
	s.pushState()
}

// Handle applies one browser event. It runs on the loop.
func (s *Session) Handle(ev Event) {
	switch ev.Type {
	case EventResize:
		s.mem.Resize(ev.Width)
	case EventKeyDown:
		s.mem.KeyDown(ev.Key)
	case EventIntersect:
		s.intersect(ev.Entries)
	case EventClickTOC:
		s.toc.Activate(ev.ID)
	case EventToggle:
		s.drawer.Toggle()
	case EventOverlay:
		s.drawer.OverlayClick()
	case EventFrame:
		s.frame(ev.Frame, ev.Layout)
	}
}

func (s *Session) intersect(entries []IntersectEntry) {
	batch := make([]browser.IntersectionEntry, 0, len(entries))
	for _, e := range entries {
		el, ok := s.page.Doc.ElementByID(e.ID)
		if !ok {
			continue
		}
		batch = append(batch, browser.IntersectionEntry{Target: el, Intersecting: e.Intersecting})
	}
	s.mem.Intersect(batch...)
}

// frame records the reported layout and runs the matching frame callback
// once the loop has drained any events that arrived with it.
func (s *Session) frame(id int, layout *Layout) {
	if layout != nil {
		s.applyLayout(layout)
	}
	p, ok := s.frames[id]
	if !ok || p.cancel != nil {
		return
	}
	p.cancel = s.loop.RequestFrame(func() {
		delete(s.frames, id)
		p.fn()
	})
}

// applyLayout converts viewport rectangles to offsets within the
// scrollable region.
func (s *Session) applyLayout(layout *Layout) {
	bounds := layout.Nav.rect()
	links := make(map[string]browser.Rect, len(layout.Links))
	for href, r := range layout.Links {
		shift := layout.ScrollTop - bounds.Top
		links[href] = browser.Rect{Top: r.Top + shift, Bottom: r.Bottom + shift}
	}
	s.mem.SetNavRegion(bounds, links)
	s.mem.SetNavScrollTop(layout.ScrollTop)
}

func (s *Session) pushState() {
	st := State{
		Drawer: s.drawer.State().String(),
		Hash:   s.mem.Hash(),
	}
	if id, ok := s.obs.Active(); ok {
		st.ActiveHeading = id
	}
	if href, ok := s.drawer.ActiveHref(); ok {
		st.ActiveHref = href
	}
	if st == s.last {
		return
	}
	s.last = st
	s.send(Command{Type: CommandState, State: &st})
}

// Snapshot returns the last state sent to the page.
func (s *Session) Snapshot() State { return s.last }

// Close tears every controller down.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	if s.toc != nil {
		s.toc.Close()
	}
	if s.drawer != nil {
		s.drawer.Close()
	}
	if s.breakpoint != nil {
		s.breakpoint.Close()
	}
	if s.obs != nil {
		s.obs.Close()
	}
	for id, p := range s.frames {
		if p.cancel != nil {
			p.cancel()
		}
		delete(s.frames, id)
	}
	s.log.Debug(context.Background(), "session closed")
}

// Pathname implements browser.Location.
func (s *Session) Pathname() string { return s.mem.Pathname() }

// ReplaceHash implements browser.Location.
func (s *Session) ReplaceHash(hash string) {
	s.mem.ReplaceHash(hash)
	s.send(Command{Type: CommandReplaceHash, Hash: hash})
	s.pushState()
}

// ScrollToElement implements browser.Scroller.
func (s *Session) ScrollToElement(el dom.Element) {
	s.mem.ScrollToElement(el)
	s.send(Command{Type: CommandScrollToElement, ID: el.ID()})
}

// RequestFrame implements browser.Frames. The page answers with a frame
// event carrying fresh layout.
func (s *Session) RequestFrame(fn func()) browser.Cancel {
	s.nextFrame++
	id := s.nextFrame
	p := &pendingFrame{fn: fn}
	s.frames[id] = p
	s.send(Command{Type: CommandRequestFrame, Frame: id})
	return func() {
		if p.cancel != nil {
			p.cancel()
		}
		delete(s.frames, id)
	}
}

// Bounds implements browser.ScrollRegion.
func (s *Session) Bounds() browser.Rect { return s.mem.Bounds() }

// ScrollTop implements browser.ScrollRegion.
func (s *Session) ScrollTop() float64 { return s.mem.ScrollTop() }

// LinkBounds implements browser.ScrollRegion.
func (s *Session) LinkBounds(href string) (browser.Rect, bool) { return s.mem.LinkBounds(href) }

// ScrollTo implements browser.ScrollRegion.
func (s *Session) ScrollTo(top float64) {
	s.mem.ScrollTo(top)
	s.send(Command{Type: CommandScrollNav, Top: top})
}
