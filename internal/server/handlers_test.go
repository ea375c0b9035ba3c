// internal/server/handlers_test.go
package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeed/internal/cache"
	"marketfeed/internal/common/database"
	"marketfeed/internal/common/logger"
	"marketfeed/internal/debounce"
	"marketfeed/internal/feed"
	"marketfeed/internal/feed/carousel"
	"marketfeed/internal/feed/querybuilder"
	"marketfeed/internal/models"
	"marketfeed/internal/search"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock, *miniredis.Miniredis) {
	db, mock, err := sqlmock.New(
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewTestLogger(t)
	pg := &database.PostgresClient{DB: db}
	rdb := &database.RedisClient{Client: client}

	sessionCache := cache.NewSessionCache(rdb, 15*time.Minute, log)
	pipeline := feed.NewPipeline(
		querybuilder.NewBuilder(2),
		querybuilder.NewRunner(pg, 2*time.Second, log),
		carousel.NewFetcher(pg, rdb, 10, 5*time.Minute, log),
		sessionCache,
		nil,
		nil,
		feed.Options{PageSize: 2, DropWithoutCoordinates: true},
		log,
	)
	searchSvc := search.NewService(pg, nil, "search_suggestions", 8, true, log)
	debouncer := debounce.New(10 * time.Millisecond)

	return New(":0", pipeline, searchSvc, sessionCache, debouncer, pg, rdb, log), mock, mr
}

func (s *Server) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestFeedRejectsInvalidBody(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{{{"},
		{name: "unknown field", body: `{"userId":"u1","bogus":1}`},
		{name: "bad sort order", body: `{"userId":"u1","filters":{"sortBy":"cheapest"}}`},
		{name: "out of range latitude", body: `{"location":{"latitude":999,"longitude":0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/feed", strings.NewReader(tt.body))
			rec := s.serve(req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFeedRejectsInvalidCursor(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/feed",
		strings.NewReader(`{"userId":"u1","sessionId":"s1","cursor":"@@broken@@"}`))
	rec := s.serve(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_CURSOR", body["code"])
}

func TestFeedMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	rec := s.serve(req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSuggestionsEndpoint(t *testing.T) {
	s, mock, _ := newTestServer(t)

	mock.ExpectQuery("SELECT DISTINCT title FROM service_listings").
		WithArgs("plum%", 8).
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Plumbing repair"))

	req := httptest.NewRequest(http.MethodGet, "/v1/suggestions?q=plum", nil)
	rec := s.serve(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "Plumbing repair", body.Suggestions[0].Text)
}

func TestSuggestionsDegradeToEmpty(t *testing.T) {
	s, mock, _ := newTestServer(t)

	mock.ExpectQuery("SELECT DISTINCT title FROM service_listings").
		WillReturnError(assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/v1/suggestions?q=plum", nil)
	rec := s.serve(req)

	require.Equal(t, http.StatusOK, rec.Code, "suggestion failures must not break typing")
	var body struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Suggestions)
}

func TestCategoriesEndpoint(t *testing.T) {
	s, mock, _ := newTestServer(t)

	mock.ExpectQuery("SELECT id, name, icon FROM categories").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon"}).
			AddRow("c1", "Cleaning", "broom").
			AddRow("c2", "Repairs", nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/categories", nil)
	rec := s.serve(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Categories []models.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Categories, 2)
	assert.Equal(t, "Cleaning", body.Categories[0].Name)
	assert.Empty(t, body.Categories[1].Icon)
}

func TestRecordSearchEndpoint(t *testing.T) {
	s, mock, _ := newTestServer(t)

	mock.ExpectExec("INSERT INTO search_analytics").
		WithArgs(sqlmock.AnyArg(), "u1", "plumber", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/v1/search/record",
		strings.NewReader(`{"userId":"u1","query":"plumber","resultCount":3}`))
	rec := s.serve(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateCacheEndpoint(t *testing.T) {
	s, _, mr := newTestServer(t)
	require.NoError(t, mr.Set("feed:sess:u1:fp", "[]"))

	req := httptest.NewRequest(http.MethodPost, "/v1/cache/invalidate",
		strings.NewReader(`{"userId":"u1"}`))
	rec := s.serve(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, mr.Exists("feed:sess:u1:fp"))
}

func TestInvalidateCacheRequiresUserID(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/cache/invalidate", strings.NewReader(`{}`))
	rec := s.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s, mock, _ := newTestServer(t)
	mock.ExpectPing()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := s.serve(req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
