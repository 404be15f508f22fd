package site

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/tabi/internal/dom"
	tabierrors "github.com/conneroisu/tabi/internal/errors"
	"github.com/conneroisu/tabi/internal/nav"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var sourceExts = []string{".md", ".markdown", ".html", ".htm"}

// Store maps request paths to article files under a content directory and
// renders them into documents.
type Store struct {
	dir         string
	containerID string
	md          goldmark.Markdown
}

// NewStore creates a store over dir. Rendered articles are wrapped in an
// element with containerID unless the source already has one.
func NewStore(dir, containerID string) *Store {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Store{
		dir:         dir,
		containerID: containerID,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Dir is the content directory.
func (s *Store) Dir() string { return s.dir }

// Resolve finds the source file for a request path. "/guides/start" is
// served from guides/start.md, guides/start.html, or an index file in
// guides/start/.
func (s *Store) Resolve(urlPath string) (string, error) {
	clean := nav.Normalize(urlPath)
	if clean == "" || !strings.HasPrefix(clean, "/") || strings.Contains(clean, "..") {
		return "", tabierrors.NewValidationError(tabierrors.ErrCodeFileNotFound, "invalid page path").
			WithContext("path", urlPath)
	}

	rel := filepath.FromSlash(strings.TrimPrefix(clean, "/"))
	var candidates []string
	if rel != "" {
		for _, ext := range sourceExts {
			candidates = append(candidates, filepath.Join(s.dir, rel+ext))
		}
	}
	for _, ext := range sourceExts {
		candidates = append(candidates, filepath.Join(s.dir, rel, "index"+ext))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", tabierrors.NewIOError(tabierrors.ErrCodeFileNotFound, "page not found", nil).
		WithContext("path", clean)
}

// URLPath maps a source file back to the request path it serves.
func (s *Store) URLPath(file string) (string, bool) {
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	rel, err := filepath.Rel(s.dir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	ext := filepath.Ext(rel)
	if !isSource(ext) {
		return "", false
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, ext))
	if rel == "index" {
		return "/", true
	}
	rel = strings.TrimSuffix(rel, "/index")
	return "/" + rel, true
}

func isSource(ext string) bool {
	switch strings.ToLower(ext) {
	case ".md", ".markdown", ".html", ".htm":
		return true
	}
	return false
}

// Load renders the page for urlPath into a fresh document.
func (s *Store) Load(_ context.Context, urlPath string) (*dom.HTMLDocument, error) {
	file, err := s.Resolve(urlPath)
	if err != nil {
		return nil, err
	}
	return s.LoadFile(file)
}

// LoadFile renders a single source file. Markdown is converted to HTML;
// HTML is used as is.
func (s *Store) LoadFile(file string) (*dom.HTMLDocument, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, tabierrors.NewIOError(tabierrors.ErrCodeFileNotFound, "reading article", err).WithFile(file)
	}
	doc, err := s.Render(src, filepath.Ext(file))
	if err != nil {
		var te *tabierrors.TabiError
		if errors.As(err, &te) {
			return nil, te.WithFile(file)
		}
		return nil, err
	}
	return doc, nil
}

// Render turns article source into a document whose container element
// holds the article.
func (s *Store) Render(src []byte, ext string) (*dom.HTMLDocument, error) {
	body := src
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		var buf bytes.Buffer
		if err := s.md.Convert(src, &buf); err != nil {
			return nil, contentError("rendering markdown", err)
		}
		body = buf.Bytes()
	case ".html", ".htm":
		doc, err := dom.Parse(bytes.NewReader(src))
		if err != nil {
			return nil, contentError("parsing html", err)
		}
		if _, ok := doc.ElementByID(s.containerID); ok {
			return doc, nil
		}
	default:
		return nil, tabierrors.NewValidationError(tabierrors.ErrCodeContentInvalid, "unsupported article type").
			WithContext("ext", ext)
	}

	var wrapped bytes.Buffer
	wrapped.WriteString(`<article id="`)
	wrapped.WriteString(s.containerID)
	wrapped.WriteString(`">`)
	wrapped.Write(body)
	wrapped.WriteString(`</article>`)
	doc, err := dom.Parse(&wrapped)
	if err != nil {
		return nil, contentError("parsing article", err)
	}
	return doc, nil
}

func contentError(msg string, cause error) *tabierrors.TabiError {
	err := tabierrors.NewValidationError(tabierrors.ErrCodeContentInvalid, msg)
	err.Cause = cause
	return err
}
