// Package http serves the JSON API and the embedded front-end.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kaimono/internal/cache"
	"kaimono/internal/core"
	"kaimono/internal/services"
	"kaimono/web"
)

const (
	dayCacheSize = 128
	dayCacheTTL  = 30 * time.Second
)

// Server wires the shopping service to HTTP. Day views are cached briefly;
// any mutation purges the cache because month totals span dates.
type Server struct {
	http.Server

	svc         *services.ShoppingService
	token       string
	rateLimiter *rateLimiter
	dayCache    *cache.LRU[core.DayView]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

func NewServer(addr string, svc *services.ShoppingService, token string) *Server {
	s := &Server{
		svc:              svc,
		token:            token,
		rateLimiter:      newRateLimiter(),
		dayCache:         cache.NewLRU[core.DayView](dayCacheSize, dayCacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", s.withAPIMiddleware(s.handleAPI))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.Handle("/", http.FileServerFS(web.StaticFS))

	s.Server = http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go s.cacheCleanupLoop()
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReadyz answers ready once the store responds to a cheap read.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.svc.Budget(ctx, core.Today().YearMonth()); err != nil {
		slog.ErrorContext(ctx, "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) cacheCleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.dayCache.CleanExpired(); n > 0 {
				slog.Debug("Cleaned expired day views", "count", n)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops background loops and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
	})
	return s.Server.Shutdown(ctx)
}
