// internal/search/suggestions.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"marketfeed/internal/common/database"
	stderrors "marketfeed/internal/common/errors"
	"marketfeed/internal/common/logger"
	"marketfeed/internal/models"
)

// Service retrieves search suggestions and records search analytics.
// Suggestions prefer Elasticsearch; when ES is disabled or unavailable the
// lookup falls back to a Postgres prefix match over listing titles.
type Service struct {
	db             *database.PostgresClient
	es             *database.ElasticsearchClient
	index          string
	maxSuggestions int
	recordSearches bool
	logger         logger.Logger
}

func NewService(db *database.PostgresClient, es *database.ElasticsearchClient, index string, maxSuggestions int, recordSearches bool, log logger.Logger) *Service {
	return &Service{
		db:             db,
		es:             es,
		index:          index,
		maxSuggestions: maxSuggestions,
		recordSearches: recordSearches,
		logger:         log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

// Suggestions returns up to the configured number of suggestions for a partial
// query. An empty query yields no suggestions.
func (s *Service) Suggestions(ctx context.Context, query string) ([]models.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Suggestion{}, nil
	}

	if s.es != nil {
		suggestions, err := s.fromElasticsearch(ctx, query)
		if err == nil {
			return suggestions, nil
		}
		s.logger.Warn("elasticsearch suggestions failed, falling back to postgres", map[string]interface{}{
			"query": query,
			"error": err,
		})
	}

	return s.fromPostgres(ctx, query)
}

func (s *Service) fromElasticsearch(ctx context.Context, query string) ([]models.Suggestion, error) {
	body := map[string]interface{}{
		"size": s.maxSuggestions,
		"query": map[string]interface{}{
			"match_phrase_prefix": map[string]interface{}{
				"title": query,
			},
		},
		"_source": []string{"title"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, stderrors.NewSuggestionsFailedError(err)
	}

	res, err := s.es.Client.Search(
		s.es.Client.Search.WithContext(ctx),
		s.es.Client.Search.WithIndex(s.index),
		s.es.Client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, stderrors.NewSuggestionsFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, stderrors.NewSuggestionsFailedError(fmt.Errorf("search status %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Title string `json:"title"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, stderrors.NewSuggestionsFailedError(err)
	}

	out := make([]models.Suggestion, 0, len(parsed.Hits.Hits))
	seen := make(map[string]bool)
	for _, hit := range parsed.Hits.Hits {
		title := hit.Source.Title
		if title == "" || seen[strings.ToLower(title)] {
			continue
		}
		seen[strings.ToLower(title)] = true
		out = append(out, models.Suggestion{Text: title, Score: hit.Score})
	}
	return out, nil
}

func (s *Service) fromPostgres(ctx context.Context, query string) ([]models.Suggestion, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT title FROM service_listings
WHERE status = 'active' AND title ILIKE $1
ORDER BY title
LIMIT $2`, query+"%", s.maxSuggestions)
	if err != nil {
		return nil, stderrors.NewSuggestionsFailedError(err)
	}
	defer rows.Close()

	out := make([]models.Suggestion, 0, s.maxSuggestions)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			continue
		}
		out = append(out, models.Suggestion{Text: title})
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewSuggestionsFailedError(err)
	}
	return out, nil
}

// RecordSearch persists one search-analytics row. Recording is best-effort:
// failures are logged and swallowed so analytics never affects the feed.
func (s *Service) RecordSearch(ctx context.Context, userID, query string, resultCount int) {
	if !s.recordSearches || strings.TrimSpace(query) == "" {
		return
	}

	_, err := s.db.Exec(ctx, `INSERT INTO search_analytics (id, user_id, query, result_count, created_at)
VALUES ($1, $2, $3, $4, NOW())`, uuid.New().String(), userID, query, resultCount)
	if err != nil {
		s.logger.Warn("failed to record search", map[string]interface{}{
			"user_id": userID,
			"error":   err,
		})
	}
}
