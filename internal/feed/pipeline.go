// internal/feed/pipeline.go
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"marketfeed/internal/cache"
	stderrors "marketfeed/internal/common/errors"
	"marketfeed/internal/common/logger"
	"marketfeed/internal/common/metrics"
	"marketfeed/internal/common/observability"
	"marketfeed/internal/feed/assembler"
	"marketfeed/internal/feed/carousel"
	"marketfeed/internal/feed/postprocess"
	"marketfeed/internal/feed/querybuilder"
	"marketfeed/internal/geo"
	"marketfeed/internal/models"
)

var (
	// ErrFetchInFlight signals that an identical fetch for the same session is
	// already running; the caller should wait for that one instead.
	ErrFetchInFlight = errors.New("identical fetch already in flight for session")

	// ErrStaleCycle signals that a newer fetch for the session started while
	// this one ran, so its results were discarded unseen.
	ErrStaleCycle = errors.New("fetch cycle superseded by a newer one")
)

// Request is one feed fetch cycle's input.
type Request struct {
	UserID     string
	SessionID  string
	SearchText string
	Page       int
	Cursor     string
	Location   *geo.Coordinates
	Filters    models.FilterOptions
}

// SearchActive reports whether the request narrows the feed, which suppresses
// the banner and carousels.
func (r Request) SearchActive() bool {
	return r.SearchText != "" || !r.Filters.IsEmpty()
}

// Pipeline orchestrates a fetch cycle: build queries, fan out to the sources,
// post-process the merged superset, and assemble the renderable page.
type Pipeline struct {
	builder      *querybuilder.Builder
	runner       *querybuilder.Runner
	carousels    *carousel.Fetcher
	sessionCache *cache.SessionCache
	geocoder     *geo.Geocoder
	paginator    assembler.Paginator
	assembler    assembler.Assembler
	ppOpts       postprocess.Options
	obs          *observability.Observability
	logger       logger.Logger

	mu       sync.Mutex
	inFlight map[string]bool           // sessionID:fingerprint
	cycles   map[string]*sessionCycles // sessionID -> latest accepted cycle
	active   map[string]int            // sessionID -> fetches currently in flight
}

// sessionCycles tracks the newest fetch cycle a session has started and when
// it was last touched, so idle sessions can be evicted.
type sessionCycles struct {
	latest  uint64
	touched time.Time
}

const (
	// maxTrackedSessions bounds the cycle-counter map. Crossing the bound
	// triggers an eviction sweep of idle sessions.
	maxTrackedSessions = 4096

	// sessionCycleTTL is how long an idle session keeps its cycle counter once
	// the map is over the bound. Losing a counter is safe: the session simply
	// restarts at cycle 1 on its next fetch.
	sessionCycleTTL = 30 * time.Minute
)

// Options carries pipeline construction parameters.
type Options struct {
	PageSize               int
	DropWithoutCoordinates bool
	BannerEnabled          bool
}

func NewPipeline(builder *querybuilder.Builder, runner *querybuilder.Runner, carousels *carousel.Fetcher, sessionCache *cache.SessionCache, geocoder *geo.Geocoder, obs *observability.Observability, opts Options, log logger.Logger) *Pipeline {
	return &Pipeline{
		builder:      builder,
		runner:       runner,
		carousels:    carousels,
		sessionCache: sessionCache,
		geocoder:     geocoder,
		paginator:    assembler.Paginator{PageSize: opts.PageSize},
		assembler:    assembler.Assembler{BannerEnabled: opts.BannerEnabled},
		ppOpts:       postprocess.Options{DropWithoutCoordinates: opts.DropWithoutCoordinates},
		obs:          obs,
		logger:       log.WithFields(map[string]interface{}{"component": "pipeline"}),
		inFlight:     make(map[string]bool),
		cycles:       make(map[string]*sessionCycles),
		active:       make(map[string]int),
	}
}

// Fetch runs one feed cycle. Duplicate concurrent fetches for the same session
// and inputs are rejected with ErrFetchInFlight; results that lose the race to
// a newer cycle are discarded with ErrStaleCycle.
func (p *Pipeline) Fetch(ctx context.Context, req Request) (*models.FeedPage, error) {
	start := time.Now()
	fingerprint := Fingerprint(req)
	guardKey := req.SessionID + ":" + fingerprint

	cycle, ok := p.begin(guardKey, req.SessionID)
	if !ok {
		return nil, ErrFetchInFlight
	}
	defer p.end(guardKey, req.SessionID)

	mode := "idle"
	if req.SearchActive() {
		mode = "search"
	}
	metrics.FeedRequests.WithLabelValues(mode).Inc()

	superset, err := p.superset(ctx, req, fingerprint)
	if err != nil {
		return nil, err
	}

	var carousels models.Carousels
	if !req.SearchActive() && req.Page == 0 {
		carousels = p.carousels.FetchAll(ctx)
	}

	// Visual commit gate: if a newer cycle for this session was accepted while
	// we were fetching, our results must never reach the screen.
	if !p.current(req.SessionID, cycle) {
		metrics.StaleCyclesDiscarded.Inc()
		p.logger.Debug("discarding stale fetch cycle", map[string]interface{}{
			"session_id": req.SessionID,
			"cycle":      cycle,
		})
		return nil, ErrStaleCycle
	}

	paged, hasMore := p.paginator.Page(superset, req.Page)
	blocks := p.assembler.Assemble(paged, carousels, req.SearchActive(), req.Page)

	page := &models.FeedPage{
		Blocks:   blocks,
		Listings: paged,
		Page:     req.Page,
		HasMore:  hasMore,
		Total:    len(superset),
	}
	if hasMore {
		page.NextCursor = nextCursor(superset)
	}

	if p.obs != nil {
		p.obs.RecordFetch(ctx, mode)
		p.obs.RecordFetchDuration(ctx, time.Since(start), mode)
	}

	return page, nil
}

// superset returns the post-processed merged result set, reusing the session
// cache for later pages of an unchanged query.
func (p *Pipeline) superset(ctx context.Context, req Request, fingerprint string) ([]models.MarketplaceListing, error) {
	if req.Page > 0 && p.sessionCache != nil {
		if cached, ok := p.sessionCache.Get(ctx, req.UserID, fingerprint); ok {
			return cached, nil
		}
	}

	cursor, err := querybuilder.DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	ref := p.referenceLocation(ctx, req)

	serviceQuery, jobQuery := p.builder.Build(req.SearchText, req.Filters, cursor)
	merged, err := p.runner.Run(ctx, serviceQuery, jobQuery)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, stderrors.NewQueryTimeoutError("feed")
		}
		return nil, stderrors.NewQueryFailedError("feed", err)
	}

	processed := postprocess.Apply(merged, req.Filters, ref, p.ppOpts, p.logger)

	if p.sessionCache != nil && req.UserID != "" {
		if err := p.sessionCache.Set(ctx, req.UserID, fingerprint, processed); err != nil {
			p.logger.Warn("session cache write failed", map[string]interface{}{
				"user_id": req.UserID,
				"error":   err,
			})
		}
	}

	return processed, nil
}

// referenceLocation prefers the caller's own coordinates, then falls back to
// geocoding the location filter text. No location is a valid outcome: distance
// filtering and distance sort simply stay inert.
func (p *Pipeline) referenceLocation(ctx context.Context, req Request) *geo.Coordinates {
	if req.Location != nil {
		return req.Location
	}
	if req.Filters.Location == "" || p.geocoder == nil {
		return nil
	}

	coords, err := p.geocoder.Geocode(ctx, req.Filters.Location)
	if err != nil {
		p.logger.Debug("geocode fallback failed, proceeding without reference location", map[string]interface{}{
			"location": req.Filters.Location,
			"error":    err,
		})
		return nil
	}
	return coords
}

func (p *Pipeline) begin(guardKey, sessionID string) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inFlight[guardKey] {
		return 0, false
	}
	if len(p.cycles) >= maxTrackedSessions {
		p.evictIdleSessionsLocked()
	}

	p.inFlight[guardKey] = true
	p.active[sessionID]++

	sc := p.cycles[sessionID]
	if sc == nil {
		sc = &sessionCycles{}
		p.cycles[sessionID] = sc
	}
	sc.latest++
	sc.touched = time.Now()
	return sc.latest, true
}

func (p *Pipeline) end(guardKey, sessionID string) {
	p.mu.Lock()
	delete(p.inFlight, guardKey)
	if p.active[sessionID] > 1 {
		p.active[sessionID]--
	} else {
		delete(p.active, sessionID)
	}
	p.mu.Unlock()
}

func (p *Pipeline) current(sessionID string, cycle uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sc := p.cycles[sessionID]
	return sc != nil && sc.latest == cycle
}

// evictIdleSessionsLocked drops cycle counters for sessions with no fetch in
// flight, oldest first by expiry, then by necessity until the map fits the
// bound again. Sessions with an active fetch are never evicted, so a running
// cycle always finds its counter at the commit gate.
func (p *Pipeline) evictIdleSessionsLocked() {
	cutoff := time.Now().Add(-sessionCycleTTL)
	for id, sc := range p.cycles {
		if p.active[id] == 0 && sc.touched.Before(cutoff) {
			delete(p.cycles, id)
		}
	}
	if len(p.cycles) < maxTrackedSessions {
		return
	}
	for id := range p.cycles {
		if p.active[id] == 0 {
			delete(p.cycles, id)
		}
		if len(p.cycles) < maxTrackedSessions {
			return
		}
	}
}

// nextCursor points at the oldest listing of the fetched superset, so the next
// keyset fetch resumes strictly past everything already seen.
func nextCursor(listings []models.MarketplaceListing) string {
	if len(listings) == 0 {
		return ""
	}
	oldest := listings[0]
	for _, l := range listings[1:] {
		if l.CreatedAt.Before(oldest.CreatedAt) ||
			(l.CreatedAt.Equal(oldest.CreatedAt) && l.ID < oldest.ID) {
			oldest = l
		}
	}
	return querybuilder.Cursor{CreatedAt: oldest.CreatedAt, ID: oldest.ID}.Encode()
}

// Fingerprint identifies a request's fetch inputs for caching and in-flight
// deduplication.
func Fingerprint(req Request) string {
	return querybuilder.Fingerprint(req.SearchText, req.Filters, locationKey(req.Location))
}

func locationKey(c *geo.Coordinates) string {
	if c == nil {
		return ""
	}
	return geoKey(*c)
}
