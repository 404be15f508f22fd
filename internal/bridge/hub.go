// Package bridge connects live pages to server-side controllers over a
// websocket. Each connection gets its own Session and event loop; the page
// script reports browser events and applies the commands it receives.
package bridge

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	tabierrors "github.com/conneroisu/tabi/internal/errors"
	"github.com/conneroisu/tabi/internal/logging"
	"github.com/conneroisu/tabi/internal/loop"
	"github.com/conneroisu/tabi/internal/nav"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 64
)

// PageSource resolves a request path to the page a session mounts. Every
// call returns a fresh document since sessions assign heading ids.
type PageSource interface {
	Page(ctx context.Context, path string) (*Page, error)
}

// HubConfig configures a Hub.
type HubConfig struct {
	Options Options
	// OriginPatterns are passed to websocket.Accept. Empty means same
	// origin only.
	OriginPatterns []string
	Logger         logging.Logger
}

// Hub accepts page connections and tracks their sessions.
type Hub struct {
	source PageSource
	cfg    HubConfig
	log    logging.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

type client struct {
	conn    *websocket.Conn
	path    string
	out     chan Command
	loop    *loop.Loop
	session *Session
}

// NewHub creates a hub serving pages from source.
func NewHub(source PageSource, cfg HubConfig) *Hub {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		source:  source,
		cfg:     cfg,
		log:     log.WithComponent("bridge"),
		clients: make(map[*client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ServeHTTP upgrades the request and runs a session until the page goes
// away. The query carries the page path and the viewport width.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") {
		path = "/"
	}
	width, err := strconv.Atoi(r.URL.Query().Get("width"))
	if err != nil || width <= 0 {
		http.Error(w, "width must be a positive integer", http.StatusBadRequest)
		return
	}

	page, err := h.source.Page(r.Context(), nav.Normalize(path))
	if err != nil {
		h.log.Warn(r.Context(), err, "page not available", "path", path)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	page.Path = path

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.cfg.OriginPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.log.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{
		conn: conn,
		path: nav.Normalize(path),
		out:  make(chan Command, sendBuffer),
		loop: loop.New(0),
	}
	c.session = NewSession(page, width, h.cfg.Options, c.loop, h.enqueue(c), h.log)

	h.register(c)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(c)
	}()
}

func (h *Hub) enqueue(c *client) func(Command) {
	return func(cmd Command) {
		select {
		case c.out <- cmd:
		default:
			h.log.Warn(h.ctx, nil, "send buffer full, dropping command", "type", cmd.Type, "path", c.path)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info(h.ctx, "page connected", "path", c.path, "clients", n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info(h.ctx, "page disconnected", "path", c.path, "clients", n)
}

// run owns the connection: it starts the loop and the writer, mounts the
// session and feeds it events until the page disconnects.
func (h *Hub) run(c *client) {
	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	defer h.unregister(c)

	go c.loop.Run(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.write(ctx, c)
	}()

	status := websocket.StatusNormalClosure
	if err := c.loop.Do(ctx, c.session.Mount); err != nil {
		status = websocket.StatusInternalError
	} else {
		h.read(ctx, c)
	}

	cancel()
	<-c.loop.Done()
	// The loop has stopped, so nothing else touches the session.
	c.session.Close()
	<-writerDone
	_ = c.conn.Close(status, "")
}

func (h *Hub) read(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				websocket.CloseStatus(err) != websocket.StatusGoingAway && ctx.Err() == nil {
				h.log.Debug(ctx, "read ended", "path", c.path, "error", err.Error())
			}
			return
		}

		ev, err := DecodeEvent(data)
		if err != nil {
			h.log.Warn(ctx, err, "rejected event", "path", c.path)
			if tabierrors.IsRecoverable(err) {
				h.enqueue(c)(Command{Type: CommandError, Message: err.Error()})
				continue
			}
			return
		}

		if err := c.loop.Post(ctx, func() { c.session.Handle(ev) }); err != nil {
			return
		}
	}
}

func (h *Hub) write(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-c.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, cmd)
			cancel()
			if err != nil {
				h.log.Debug(ctx, "write failed", "path", c.path, "error", err.Error())
				_ = c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Reload tells every page showing one of paths to reload. No paths means
// every page.
func (h *Hub) Reload(paths ...string) int {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[nav.Normalize(p)] = true
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if len(want) == 0 || want[c.path] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.enqueue(c)(Command{Type: CommandReload})
	}
	return len(targets)
}

// Clients returns the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every page and waits for their sessions to end.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		h.cancel()
		h.mu.RLock()
		for c := range h.clients {
			_ = c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		}
		h.mu.RUnlock()
	})

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
