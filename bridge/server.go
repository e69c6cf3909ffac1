// Package bridge serves the viewer operations to the desktop shell over a
// loopback HTTP API, with scan progress pushed on a websocket.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"docview/logger"
	"docview/metadata"
	"docview/store"
	"docview/viewer"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Launch carries what the shell was started with.
type Launch struct {
	OpenTarget string `json:"open,omitempty"`
	SiteName   string `json:"siteName,omitempty"`
}

type Options struct {
	Launch Launch
	// CacheSize bounds the file properties cache.
	CacheSize int
	// AllowedOrigins are accepted on the websocket in addition to loopback
	// origins, e.g. the shell's custom scheme.
	AllowedOrigins []string
}

type Server struct {
	svc     *viewer.Service
	hub     *Hub
	launch  Launch
	cache   *lru.Cache[string, *metadata.Properties]
	origins map[string]struct{}
}

// New wires svc and hub. The hub should also be part of svc.Emitter for
// progress to reach websocket listeners.
func New(svc *viewer.Service, hub *Hub, opts Options) (*Server, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, *metadata.Properties](size)
	if err != nil {
		return nil, err
	}
	origins := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		origins[o] = struct{}{}
	}
	return &Server{svc: svc, hub: hub, launch: opts.Launch, cache: cache, origins: origins}, nil
}

// RegisterRoutes adds the API to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/scan", s.ScanPath)
	mux.HandleFunc("POST /api/pick/folder", s.ScanPickedFolder)
	mux.HandleFunc("POST /api/pick/file", s.ScanPickedFile)
	mux.HandleFunc("GET /api/recent", s.RecentPaths)
	mux.HandleFunc("GET /api/config", s.LoadConfig)
	mux.HandleFunc("PUT /api/config", s.SaveConfig)
	mux.HandleFunc("GET /api/title", s.WindowTitle)
	mux.HandleFunc("GET /api/launch", s.LaunchInfo)
	mux.HandleFunc("GET /api/properties", s.Properties)
	mux.HandleFunc("GET /ws/progress", s.ProgressWS)
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Scans of large trees and the websocket can outlive any fixed deadline.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Bridge listening on http://%s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bridge shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type scanRequest struct {
	Path   string `json:"path"`
	ScanID string `json:"scanId,omitempty"`
}

func (s *Server) ScanPath(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.svc.ScanPath(r.Context(), req.Path, req.ScanID)
	respond(w, result, err)
}

func (s *Server) ScanPickedFolder(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.svc.ScanPickedFolder(r.Context(), req.Path, req.ScanID)
	respond(w, result, err)
}

func (s *Server) ScanPickedFile(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.svc.ScanPickedFile(r.Context(), req.Path, req.ScanID)
	respond(w, result, err)
}

func (s *Server) RecentPaths(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %q", raw))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.svc.RecentPaths(limit))
}

func (s *Server) LoadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.LoadConfig()
	respond(w, cfg, err)
}

func (s *Server) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var partial store.AppConfig
	if !decodeBody(w, r, &partial) {
		return
	}
	if err := s.svc.SaveConfig(partial); err != nil {
		respond(w, nil, err)
		return
	}
	cfg, err := s.svc.LoadConfig()
	respond(w, cfg, err)
}

func (s *Server) WindowTitle(w http.ResponseWriter, r *http.Request) {
	siteName := r.URL.Query().Get("siteName")
	if _, ok := r.URL.Query()["siteName"]; !ok {
		siteName = s.launch.SiteName
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": viewer.WindowTitle(siteName)})
}

func (s *Server) LaunchInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.launch)
}

// Properties serves metadata.Properties, cached by path, size and
// modification time so an edited file is described afresh.
func (s *Server) Properties(w http.ResponseWriter, r *http.Request) {
	abs, err := s.svc.DescribablePath(r.URL.Query().Get("path"))
	if err != nil {
		respond(w, nil, err)
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		respond(w, nil, fmt.Errorf("cannot access %s: %w", abs, err))
		return
	}
	key := fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
	if props, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, props)
		return
	}
	props, err := metadata.Describe(abs, s.svc.HashAlgorithms)
	if err != nil {
		respond(w, nil, err)
		return
	}
	s.cache.Add(key, props)
	writeJSON(w, http.StatusOK, props)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func respond(w http.ResponseWriter, value any, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, viewer.ErrOutsideRecent):
		return http.StatusForbidden
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, viewer.ErrUnsupportedFile),
		errors.Is(err, viewer.ErrNotFileOrFolder),
		errors.Is(err, viewer.ErrNotFolder):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		logger.Debugf("Bridge response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
