// Package server is the development web server: it serves the build output and, with
// live-reload enabled, tells open pages to reload whenever that output changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-frontend-tasks/watch"
	"github.com/gorilla/mux"
)

// LiveReloadPath is the server-sent events endpoint pages listen on.
const LiveReloadPath = "/__livereload"

const liveReloadScript = `<script>(function(){var es=new EventSource("` + LiveReloadPath + `");es.addEventListener("reload",function(){window.location.reload();});})();</script>`

const shutdownTimeout = 5 * time.Second

// Config ...
type Config struct {
	Root       string
	Host       string
	Port       int
	LiveReload bool
}

// Server ...
type Server struct {
	config Config
	logger log.Logger
	hub    *hub
	files  http.Handler
}

// New ...
func New(config Config, logger log.Logger) *Server {
	return &Server{
		config: config,
		logger: logger,
		hub:    newHub(),
		files:  http.FileServer(http.Dir(config.Root)),
	}
}

// Addr ...
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// URL ...
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s/", s.Addr())
}

// Handler ...
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	if s.config.LiveReload {
		router.HandleFunc(LiveReloadPath, s.handleLiveReload).Methods(http.MethodGet)
	}
	router.PathPrefix("/").HandlerFunc(s.handleStatic)
	return router
}

// Reload tells every connected page to reload.
func (s *Server) Reload() {
	s.hub.broadcast()
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.MkdirAll(s.config.Root, 0755); err != nil {
		return fmt.Errorf("failed to create server root (%s): %w", s.config.Root, err)
	}

	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.hub.close)

	errs := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	if s.config.LiveReload {
		watcher := watch.New(s.config.Root, 0, s.logger)
		go func() {
			err := watcher.Run(ctx, func(paths []string) {
				s.logger.Printf("Reloading, %d file(s) changed", len(paths))
				s.Reload()
			})
			if err != nil {
				errs <- err
			}
		}()
	}

	s.logger.Infof("Serving %s at %s", s.config.Root, s.URL())

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnf("Failed to shut down server: %s", err)
	}

	return serveErr
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.config.LiveReload {
		if pth, ok := s.htmlFile(r.URL.Path); ok {
			s.serveHTML(w, pth)
			return
		}
	}
	s.files.ServeHTTP(w, r)
}

func (s *Server) htmlFile(urlPath string) (string, bool) {
	pth := filepath.Join(s.config.Root, filepath.FromSlash(path.Clean("/"+urlPath)))

	info, err := os.Stat(pth)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		if !strings.HasSuffix(urlPath, "/") {
			// let the file server redirect to the canonical directory URL
			return "", false
		}
		pth = filepath.Join(pth, "index.html")
		if _, err := os.Stat(pth); err != nil {
			return "", false
		}
	}

	ext := strings.ToLower(filepath.Ext(pth))
	return pth, ext == ".html" || ext == ".htm"
}

func (s *Server) serveHTML(w http.ResponseWriter, pth string) {
	content, err := os.ReadFile(pth)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(injectLiveReload(content)); err != nil {
		s.logger.Debugf("Failed to write response: %s", err)
	}
}

func injectLiveReload(content []byte) []byte {
	html := string(content)
	if idx := strings.LastIndex(strings.ToLower(html), "</body>"); idx >= 0 {
		return []byte(html[:idx] + liveReloadScript + html[idx:])
	}
	return []byte(html + liveReloadScript)
}

func (s *Server) handleLiveReload(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.hub.subscribe()
	defer s.hub.unsubscribe(events)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, "event: reload\ndata: reload\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
