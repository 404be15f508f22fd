package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	tabierrors "github.com/conneroisu/tabi/internal/errors"
	"github.com/conneroisu/tabi/internal/dom"
	"github.com/conneroisu/tabi/internal/nav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const article = `<html><body><article id="tabi-article">
<h2>Intro</h2><p>one</p>
<h2>Setup</h2><p>two</p>
<h3 id="deep">Deep Dive</h3>
</article></body></html>`

var siteNav = []nav.Entry{
	nav.ItemEntry("Home", "/"),
	nav.GroupEntry("Guides", nav.Item{Label: "Start", Href: "/start"}),
}

type stubSource struct{}

func (stubSource) Page(_ context.Context, path string) (*Page, error) {
	if path == "/missing" {
		return nil, tabierrors.NewIOError(tabierrors.ErrCodeFileNotFound, "no such page", nil)
	}
	doc, err := dom.ParseString(article)
	if err != nil {
		return nil, err
	}
	return &Page{Path: path, Doc: doc, Nav: siteNav}, nil
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(stubSource{}, HubConfig{Options: DefaultOptions()})
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// expect reads commands until one of the given type arrives.
func expect(t *testing.T, conn *websocket.Conn, typ string) Command {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var cmd Command
		require.NoError(t, wsjson.Read(ctx, conn, &cmd), "waiting for %q", typ)
		if cmd.Type == typ {
			return cmd
		}
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev Event) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, ev))
}

func TestMountObservesHeadings(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "path=/start&width=600")

	obs := expect(t, conn, CommandObserve)
	assert.Equal(t, []string{"intro", "setup", "deep"}, obs.IDs)
	assert.Equal(t, "-110px 0px -66% 0px", obs.RootMargin)
	assert.Equal(t, 1.0, obs.Threshold)

	st := expect(t, conn, CommandState)
	require.NotNil(t, st.State)
	assert.Equal(t, "closed", st.State.Drawer)
	assert.Equal(t, "/start", st.State.ActiveHref)
}

func TestDrawerEvents(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "path=/&width=600")
	expect(t, conn, CommandState)

	sendEvent(t, conn, Event{Type: EventToggle})
	assert.Equal(t, "open", expect(t, conn, CommandState).State.Drawer)

	sendEvent(t, conn, Event{Type: EventKeyDown, Key: "Escape"})
	assert.Equal(t, "closed", expect(t, conn, CommandState).State.Drawer)

	sendEvent(t, conn, Event{Type: EventResize, Width: 1400})
	assert.Equal(t, "open", expect(t, conn, CommandState).State.Drawer)

	sendEvent(t, conn, Event{Type: EventResize, Width: 800})
	assert.Equal(t, "closed", expect(t, conn, CommandState).State.Drawer)

	sendEvent(t, conn, Event{Type: EventToggle})
	expect(t, conn, CommandState)
	sendEvent(t, conn, Event{Type: EventOverlay})
	assert.Equal(t, "closed", expect(t, conn, CommandState).State.Drawer)
}

func TestIntersectAndTOCClick(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "path=/&width=1280")
	expect(t, conn, CommandState)

	sendEvent(t, conn, Event{Type: EventIntersect, Entries: []IntersectEntry{
		{ID: "deep", Intersecting: true},
		{ID: "setup", Intersecting: true},
	}})
	assert.Equal(t, "setup", expect(t, conn, CommandState).State.ActiveHeading)

	sendEvent(t, conn, Event{Type: EventClickTOC, ID: "intro"})
	assert.Equal(t, "intro", expect(t, conn, CommandScrollToElement).ID)
	assert.Equal(t, "#intro", expect(t, conn, CommandReplaceHash).Hash)
	assert.Equal(t, "#intro", expect(t, conn, CommandState).State.Hash)

	// Unknown targets are ignored.
	sendEvent(t, conn, Event{Type: EventClickTOC, ID: "nope"})
	sendEvent(t, conn, Event{Type: EventToggle})
	st := expect(t, conn, CommandState)
	assert.Equal(t, "closed", st.State.Drawer)
	assert.Equal(t, "#intro", st.State.Hash)
}

func TestFrameRevealsActiveLink(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "path=/start/&width=1280")

	req := expect(t, conn, CommandRequestFrame)
	require.Positive(t, req.Frame)

	sendEvent(t, conn, Event{Type: EventFrame, Frame: req.Frame, Layout: &Layout{
		Nav:       Rect{Top: 100, Bottom: 500},
		ScrollTop: 0,
		Links: map[string]Rect{
			"/":      {Top: 100, Bottom: 120},
			"/start": {Top: 1000, Bottom: 1020},
		},
	}})
	assert.Equal(t, 710.0, expect(t, conn, CommandScrollNav).Top)
}

func TestMalformedEventsAreReported(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "path=/&width=600")
	expect(t, conn, CommandState)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	assert.Contains(t, expect(t, conn, CommandError).Message, "malformed event")

	sendEvent(t, conn, Event{Type: "scroll"})
	assert.Contains(t, expect(t, conn, CommandError).Message, "unknown event type")

	// The session survives.
	sendEvent(t, conn, Event{Type: EventToggle})
	assert.Equal(t, "open", expect(t, conn, CommandState).State.Drawer)
}

func TestReloadTargetsMatchingPages(t *testing.T) {
	hub, srv := startHub(t)
	a := dial(t, srv, "path=/start/&width=600")
	b := dial(t, srv, "path=/&width=600")
	expect(t, a, CommandState)
	expect(t, b, CommandState)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, hub.Reload("/start"))
	expect(t, a, CommandReload)

	assert.Equal(t, 2, hub.Reload())
	expect(t, b, CommandReload)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "path=/&width=600")
	expect(t, conn, CommandState)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdownTearsDownSessions(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "path=/start&width=500")
	expect(t, conn, CommandState)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.mu.RLock()
	var sessions []*Session
	for c := range hub.clients {
		sessions = append(sessions, c.session)
	}
	hub.mu.RUnlock()
	require.Len(t, sessions, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	mem := sessions[0].mem
	assert.Equal(t, 0, mem.Listeners())
	assert.Equal(t, 0, mem.Observed())
	assert.Equal(t, 0, mem.Observers())
	assert.Equal(t, 0, hub.Clients())
}

func TestRejectedRequests(t *testing.T) {
	hub, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/?path=/&width=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/?path=/missing&width=800")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, hub.Shutdown(context.Background()))
	resp, err = http.Get(srv.URL + "/?path=/&width=800")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		code string
	}{
		{"not json", `[`, tabierrors.ErrCodeMalformedMessage},
		{"unknown type", `{"type":"wheel"}`, tabierrors.ErrCodeUnknownMessage},
		{"resize without width", `{"type":"resize"}`, tabierrors.ErrCodeMalformedMessage},
		{"keydown without key", `{"type":"keydown"}`, tabierrors.ErrCodeMalformedMessage},
		{"frame without id", `{"type":"frame"}`, tabierrors.ErrCodeMalformedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.data))
			require.Error(t, err)
			var te *tabierrors.TabiError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.code, te.Code)
			assert.True(t, te.Recoverable)
		})
	}

	ev, err := DecodeEvent([]byte(`{"type":"intersect","entries":[{"id":"a","intersecting":true}]}`))
	require.NoError(t, err)
	assert.Equal(t, []IntersectEntry{{ID: "a", Intersecting: true}}, ev.Entries)
}
