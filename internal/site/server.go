// Package site serves article pages with their navigation drawer and table
// of contents, and hosts the websocket bridge that keeps both live.
package site

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/conneroisu/tabi/internal/bridge"
	"github.com/conneroisu/tabi/internal/browser"
	"github.com/conneroisu/tabi/internal/config"
	tabierrors "github.com/conneroisu/tabi/internal/errors"
	"github.com/conneroisu/tabi/internal/headings"
	"github.com/conneroisu/tabi/internal/logging"
	"github.com/conneroisu/tabi/internal/nav"
	"github.com/conneroisu/tabi/internal/sidenav"
	"github.com/conneroisu/tabi/internal/toc"
	"github.com/conneroisu/tabi/internal/viewport"
	"github.com/conneroisu/tabi/internal/watcher"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	assetPrefix = "/_tabi"
	scriptPath  = assetPrefix + "/static/tabi.js"
	stylePath   = assetPrefix + "/static/tabi.css"
	wsPath      = assetPrefix + "/ws"
)

//go:embed static
var staticFiles embed.FS

// Server renders pages from a content directory.
type Server struct {
	cfg    *config.Config
	store  *Store
	hub    *bridge.Hub
	log    logging.Logger
	router chi.Router

	navMu sync.RWMutex
	nav   []nav.Entry

	httpServer *http.Server
}

// New creates a server. A missing navigation file yields an empty drawer;
// an invalid one is an error.
func New(cfg *config.Config, log logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		cfg:   cfg,
		store: NewStore(cfg.Server.ContentDir, cfg.Article.ContainerID),
		log:   log.WithComponent("site"),
	}
	if err := s.ReloadNav(); err != nil {
		return nil, err
	}
	s.hub = bridge.NewHub(s, bridge.HubConfig{
		Options: bridge.Options{
			ContainerID:  cfg.Article.ContainerID,
			Observer:     cfg.ObserverOptions(),
			BreakpointPx: cfg.Nav.BreakpointPx,
		},
		Logger: log,
	})
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	static, _ := fs.Sub(staticFiles, "static")
	r.Get("/health", s.handleHealth)
	r.Get(wsPath, s.hub.ServeHTTP)
	r.Handle(assetPrefix+"/static/*", http.StripPrefix(assetPrefix+"/static/", http.FileServer(http.FS(static))))
	r.Get("/*", s.handlePage)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the bridge hub.
func (s *Server) Hub() *bridge.Hub { return s.hub }

// Store returns the content store.
func (s *Server) Store() *Store { return s.store }

// Nav returns the current navigation entries.
func (s *Server) Nav() []nav.Entry {
	s.navMu.RLock()
	defer s.navMu.RUnlock()
	return s.nav
}

// ReloadNav rereads the navigation file.
func (s *Server) ReloadNav() error {
	entries, err := nav.Load(s.cfg.Nav.File)
	if err != nil {
		if !tabierrors.IsType(err, tabierrors.ErrorTypeIO) {
			return err
		}
		s.log.Warn(context.Background(), err, "navigation file not readable, serving without navigation", "file", s.cfg.Nav.File)
		entries = nil
	}
	s.navMu.Lock()
	s.nav = entries
	s.navMu.Unlock()
	return nil
}

// Page implements bridge.PageSource.
func (s *Server) Page(ctx context.Context, path string) (*bridge.Page, error) {
	doc, err := s.store.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return &bridge.Page{Path: path, Doc: doc, Nav: s.Nav()}, nil
}

// RenderPage writes the full page for path. The drawer is rendered for a
// wide viewport; the page script corrects it once connected.
func (s *Server) RenderPage(ctx context.Context, w http.ResponseWriter, path string) error {
	op := logging.StartOperation(s.log, "render_page")
	defer op.End(ctx)

	page, err := s.Page(ctx, path)
	if err != nil {
		return err
	}

	mem := browser.NewMemory(path, s.cfg.Nav.BreakpointPx)
	obs := headings.NewObserver(page.Doc, mem, s.cfg.ObserverOptions(), s.log)
	defer obs.Close()
	outline := obs.Build(s.cfg.Article.ContainerID)

	bp := viewport.New(mem, s.cfg.Nav.BreakpointPx)
	defer bp.Close()
	drawer := sidenav.New(page.Nav, sidenav.Deps{Location: mem, Breakpoint: bp, Logger: s.log})
	defer drawer.Close()
	contents := toc.New(obs, page.Doc, mem, mem)
	defer contents.Close()

	article := ""
	if el, ok := page.Doc.ElementByID(s.cfg.Article.ContainerID); ok {
		if article, err = page.Doc.OuterHTML(el); err != nil {
			return tabierrors.NewInternalError(tabierrors.ErrCodeInternalError, "serializing article", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return Layout(LayoutData{
		Title:   pageTitle(outline, path),
		Path:    path,
		Drawer:  drawer.Component(),
		TOC:     contents.Component(),
		Article: article,
	}).Render(ctx, w)
}

func pageTitle(outline []headings.Record, path string) string {
	for _, r := range outline {
		if r.Level == 1 {
			return r.Text
		}
	}
	return path
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	err := s.RenderPage(r.Context(), w, r.URL.Path)
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	switch {
	case tabierrors.IsType(err, tabierrors.ErrorTypeIO):
		status = http.StatusNotFound
	case tabierrors.IsType(err, tabierrors.ErrorTypeValidation):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error(r.Context(), err, "page render failed", "path", r.URL.Path)
	} else {
		s.log.Debug(r.Context(), "page not served", "path", r.URL.Path, "status", status)
	}
	http.Error(w, http.StatusText(status), status)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.Clients(),
	})
}

// HandleChanges is a watcher.ChangeHandler: article changes reload the
// pages showing them, navigation changes reload every page.
func (s *Server) HandleChanges(ctx context.Context, events []watcher.ChangeEvent) error {
	var paths []string
	navChanged := false
	for _, e := range events {
		if sameFile(e.Path, s.cfg.Nav.File) {
			navChanged = true
			continue
		}
		if p, ok := s.store.URLPath(e.Path); ok {
			paths = append(paths, p)
		}
	}

	if navChanged {
		if err := s.ReloadNav(); err != nil {
			return err
		}
		n := s.hub.Reload()
		s.log.Info(ctx, "navigation reloaded", "pages", n)
		return nil
	}
	if len(paths) > 0 {
		n := s.hub.Reload(paths...)
		s.log.Info(ctx, "articles changed", "paths", paths, "pages", n)
	}
	return nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Run serves on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "serving", "addr", s.cfg.Addr(), "content", s.cfg.Server.ContentDir)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return tabierrors.NewIOError(tabierrors.ErrCodeInternalError, "http server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.hub.Shutdown(shutdownCtx); err != nil {
		s.log.Warn(shutdownCtx, err, "bridge shutdown incomplete")
	}
	return s.httpServer.Shutdown(shutdownCtx)
}
