// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketfeed/internal/cache"
	"marketfeed/internal/common/database"
	"marketfeed/internal/common/logger"
	"marketfeed/internal/debounce"
	"marketfeed/internal/feed"
	"marketfeed/internal/search"
)

// Server exposes the feed pipeline over HTTP.
type Server struct {
	pipeline     *feed.Pipeline
	search       *search.Service
	sessionCache *cache.SessionCache
	debouncer    *debounce.Debouncer
	pg           *database.PostgresClient
	redis        *database.RedisClient
	logger       logger.Logger

	httpServer *http.Server
}

func New(addr string, pipeline *feed.Pipeline, searchSvc *search.Service, sessionCache *cache.SessionCache, debouncer *debounce.Debouncer, pg *database.PostgresClient, rdb *database.RedisClient, log logger.Logger) *Server {
	s := &Server{
		pipeline:     pipeline,
		search:       searchSvc,
		sessionCache: sessionCache,
		debouncer:    debouncer,
		pg:           pg,
		redis:        rdb,
		logger:       log.WithFields(map[string]interface{}{"component": "http_server"}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/feed", s.requireMethod(http.MethodPost, s.handleFeed))
	mux.HandleFunc("/v1/feed/markers", s.requireMethod(http.MethodPost, s.handleMarkers))
	mux.HandleFunc("/v1/categories", s.requireMethod(http.MethodGet, s.handleCategories))
	mux.HandleFunc("/v1/suggestions", s.requireMethod(http.MethodGet, s.handleSuggestions))
	mux.HandleFunc("/v1/search/record", s.requireMethod(http.MethodPost, s.handleRecordSearch))
	mux.HandleFunc("/v1/cache/invalidate", s.requireMethod(http.MethodPost, s.handleInvalidateCache))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and cancels pending debounced work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.debouncer.Flush()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
