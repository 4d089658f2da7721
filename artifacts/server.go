package artifacts

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/scenariokit"
)

// Server exposes the screenshot directory over HTTP:
//
//	GET /healthz                -> 200 "ok"
//	GET /artifacts              -> JSON list, newest first
//	GET /artifacts/{name}       -> the PNG file
type Server struct {
	dir    string
	router chi.Router
	logger scenariokit.Logger
}

// NewServer creates a Server for dir.
func NewServer(dir string, logger scenariokit.Logger) *Server {
	if logger == nil {
		logger = scenariokit.NewSlogLogger(nil)
	}
	s := &Server{dir: dir, router: chi.NewRouter(), logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/artifacts", s.handleList)
	s.router.Get("/artifacts/{name}", s.handleGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := List(s.dir)
	if err != nil {
		s.logger.Error("List artifacts failed", "dir", s.dir, "error", err)
		http.Error(w, "failed to list artifacts", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		s.logger.Warn("Encode artifact list failed", "error", err)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, err := Path(s.dir, name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "failed to read artifact", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}
