// internal/feed/querybuilder/runner.go
package querybuilder

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"marketfeed/internal/common/database"
	"marketfeed/internal/common/logger"
	"marketfeed/internal/common/metrics"
	"marketfeed/internal/models"
)

// Runner executes source queries concurrently and merges their results. A
// failing source degrades to an empty contribution; the fetch fails as a whole
// only when every requested source fails.
type Runner struct {
	db      *database.PostgresClient
	timeout time.Duration
	logger  logger.Logger
}

func NewRunner(db *database.PostgresClient, timeout time.Duration, log logger.Logger) *Runner {
	return &Runner{
		db:      db,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "query_runner"}),
	}
}

type sourceResult struct {
	source   string
	listings []models.MarketplaceListing
	err      error
}

// Run fans out the non-nil queries, waits for all of them, and returns the
// concatenated results in source order (services first). Partial failure is
// logged and counted, not propagated, unless no source succeeded.
func (r *Runner) Run(ctx context.Context, queries ...*SourceQuery) ([]models.MarketplaceListing, error) {
	start := time.Now()
	defer func() {
		metrics.FeedStageDuration.WithLabelValues("query").Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	active := make([]*SourceQuery, 0, len(queries))
	for _, q := range queries {
		if q != nil {
			active = append(active, q)
		}
	}
	if len(active) == 0 {
		return []models.MarketplaceListing{}, nil
	}

	results := make([]sourceResult, len(active))
	var wg sync.WaitGroup
	for i, q := range active {
		wg.Add(1)
		go func(i int, q *SourceQuery) {
			defer wg.Done()
			listings, err := r.runOne(ctx, q)
			results[i] = sourceResult{source: q.Source, listings: listings, err: err}
		}(i, q)
	}
	wg.Wait()

	merged := make([]models.MarketplaceListing, 0)
	var lastErr error
	failures := 0
	for _, res := range results {
		if res.err != nil {
			failures++
			lastErr = res.err
			metrics.SourceQueryFailures.WithLabelValues(res.source).Inc()
			r.logger.Warn("source query failed, continuing without it", map[string]interface{}{
				"source": res.source,
				"error":  res.err,
			})
			continue
		}
		merged = append(merged, res.listings...)
	}

	if failures == len(active) {
		return nil, lastErr
	}
	return merged, nil
}

func (r *Runner) runOne(ctx context.Context, q *SourceQuery) ([]models.MarketplaceListing, error) {
	rows, err := r.db.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scan(rows, q.Kind)
}

func (r *Runner) scan(rows *sql.Rows, kind models.ListingKind) ([]models.MarketplaceListing, error) {
	if kind == models.KindJob {
		return ScanJobRows(rows, r.logger)
	}
	return ScanServiceRows(rows, r.logger)
}
