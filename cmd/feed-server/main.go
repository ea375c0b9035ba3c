// cmd/feed-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"marketfeed/internal/cache"
	"marketfeed/internal/common/config"
	"marketfeed/internal/common/database"
	"marketfeed/internal/common/logger"
	"marketfeed/internal/common/observability"
	"marketfeed/internal/debounce"
	"marketfeed/internal/feed"
	"marketfeed/internal/feed/carousel"
	"marketfeed/internal/feed/querybuilder"
	"marketfeed/internal/geo"
	"marketfeed/internal/search"
	"marketfeed/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting feed server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) with retry ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			// Suggestions fall back to Postgres when ES is unreachable.
			zapLog.Warn("elasticsearch unavailable, suggestions will use postgres fallback", zap.Error(err))
			esClient = nil
		} else {
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Wire the pipeline ---
	queryTimeout := time.Duration(cfg.Feed.QueryTimeout) * time.Millisecond

	builder := querybuilder.NewBuilder(cfg.Feed.PageSize)
	runner := querybuilder.NewRunner(pg, queryTimeout, log)
	carousels := carousel.NewFetcher(pg, rdb, cfg.Feed.CarouselSize, time.Duration(cfg.Feed.CarouselTTL)*time.Second, log)
	sessionCache := cache.NewSessionCache(rdb, time.Duration(cfg.Feed.SessionCacheTTL)*time.Second, log)

	var geocoder *geo.Geocoder
	if cfg.Geocoder.BaseURL != "" {
		geocoder = geo.NewGeocoder(cfg.Geocoder.BaseURL, cfg.Geocoder.APIKey, time.Duration(cfg.Geocoder.Timeout)*time.Millisecond, log)
	}

	dropWithoutCoords := true
	if cfg.Feed.DropWithoutCoordinates != nil {
		dropWithoutCoords = *cfg.Feed.DropWithoutCoordinates
	}

	pipeline := feed.NewPipeline(builder, runner, carousels, sessionCache, geocoder, obs, feed.Options{
		PageSize:               cfg.Feed.PageSize,
		DropWithoutCoordinates: dropWithoutCoords,
		BannerEnabled:          cfg.Feed.BannerEnabled,
	}, log)

	searchSvc := search.NewService(pg, esClient, cfg.Database.Elasticsearch.SuggestionsIndex, cfg.Search.MaxSuggestions, cfg.Search.RecordSearches, log)
	debouncer := debounce.New(time.Duration(cfg.Feed.DebounceDelay) * time.Millisecond)

	// --- Background carousel refresh ---
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Feed.CarouselRefreshSpec, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		carousels.Refresh(refreshCtx)
	})
	if err != nil {
		zapLog.Fatal("invalid carousel refresh schedule", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Warm the carousel cache before accepting traffic.
	warmCtx, cancelWarm := context.WithTimeout(ctx, queryTimeout)
	carousels.Refresh(warmCtx)
	cancelWarm()

	// --- pprof on a side port ---
	go func() {
		zapLog.Info("pprof listening on :6060")
		if err := http.ListenAndServe(":6060", nil); err != nil {
			zapLog.Warn("pprof server stopped", zap.Error(err))
		}
	}()

	// --- HTTP server ---
	srv := server.New(cfg.Server.Address, pipeline, searchSvc, sessionCache, debouncer, pg, rdb, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zapLog.Error("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("feed server stopped")
}
