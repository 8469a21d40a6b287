// Package server exposes layout manifests over HTTP.
//
// Every manifest "<name>.toml" in the served directory is built on request
// and answers:
//
//	GET /layouts                      manifest names
//	GET /layouts/{name}               JSON snapshot (see package io)
//	GET /layouts/{name}/dump          text dump
//	GET /layouts/{name}/fields        layout of every field
//	GET /layouts/{name}/fields/{f}    layout of one field
//	GET /layouts/{name}/graph.dot     node-link diagram source
//	GET /layouts/{name}/graph.svg     rendered diagram (?detailed=true)
//
// Failures are JSON objects {"code": ..., "message": ...}; the status is
// derived from the error code.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/sparsetree/pkg/cache"
	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/io"
	"github.com/matzehuels/sparsetree/pkg/manifest"
	"github.com/matzehuels/sparsetree/pkg/render/nodelink"
)

const manifestExt = ".toml"

// Server serves the manifests of one directory.
type Server struct {
	dir    string
	logger *log.Logger
	cache  cache.Cache
	svg    func(ctx context.Context, dot string) ([]byte, error)
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and build logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache sets the cache for rendered SVG diagrams.
func WithCache(c cache.Cache) Option {
	return func(s *Server) {
		if c != nil {
			s.cache = c
		}
	}
}

// New creates a server for the manifests in dir.
func New(dir string, opts ...Option) *Server {
	s := &Server{
		dir:    dir,
		logger: log.Default(),
		cache:  cache.NewNullCache(),
		svg:    nodelink.RenderSVG,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Route("/layouts", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Get("/dump", s.handleDump)
			r.Get("/fields", s.handleFields)
			r.Get("/fields/{field}", s.handleField)
			r.Get("/graph.dot", s.handleDOT)
			r.Get("/graph.svg", s.handleSVG)
		})
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"bytes", ww.BytesWritten(), "duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "read %s", s.dir))
		return
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == manifestExt {
			names = append(names, strings.TrimSuffix(e.Name(), manifestExt))
		}
	}
	slices.Sort(names)
	s.writeJSON(w, http.StatusOK, map[string][]string{"layouts": names})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	l, ok := s.layout(w, r)
	if !ok {
		return
	}
	snap, err := io.FromTree(l.Tree, l.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(snap.ID))
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	l, ok := s.layout(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := l.Tree.Dump(&buf); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	l, ok := s.layout(w, r)
	if !ok {
		return
	}
	infos, err := l.DescribeAll()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	l, ok := s.layout(w, r)
	if !ok {
		return
	}
	info, err := l.Describe(chi.URLParam(r, "field"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	l, ok := s.layout(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.Write([]byte(nodelink.ToDOT(l.Tree, dotOptions(r))))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	l, ok := s.layout(w, r)
	if !ok {
		return
	}
	opts := dotOptions(r)
	dot := nodelink.ToDOT(l.Tree, opts)
	key := cache.ArtifactKey(dot, cache.ArtifactKeyOpts{Format: "svg", Detailed: opts.Detailed})

	ctx := r.Context()
	data, hit, err := s.cache.Get(ctx, key)
	if err != nil || !hit {
		if data, err = s.svg(ctx, dot); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.cache.Set(ctx, key, data, 0); err != nil {
			s.logger.Warn("cache write failed", "layout", l.Name, "error", err)
		}
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(data)
}

// =============================================================================
// Helpers
// =============================================================================

// layout builds the manifest named in the URL. On failure it writes the
// error response and returns false.
func (s *Server) layout(w http.ResponseWriter, r *http.Request) (*manifest.Layout, bool) {
	name := chi.URLParam(r, "name")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "no layout %q", name))
		return nil, false
	}
	m, err := manifest.Load(filepath.Join(s.dir, name+manifestExt))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	l, err := manifest.Build(m, manifest.WithLogger(s.logger))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if l.Name == "" {
		l.Name = name
	}
	return l, true
}

func dotOptions(r *http.Request) nodelink.Options {
	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))
	return nodelink.Options{Detailed: detailed}
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorBody{Code: code, Message: err.Error()})
}

// statusFor maps an error code to an HTTP status. Every layout and
// manifest failure is the client's manifest being wrong.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}
