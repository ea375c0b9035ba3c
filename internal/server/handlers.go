// internal/server/handlers.go
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	stderrors "marketfeed/internal/common/errors"
	"marketfeed/internal/common/validation"
	"marketfeed/internal/feed"
	"marketfeed/internal/geo"
	"marketfeed/internal/models"
)

// recordSearchTimeout bounds the background analytics write that fires after
// the debounce window.
const recordSearchTimeout = 3 * time.Second

type feedRequestBody struct {
	UserID     string               `json:"userId"`
	SessionID  string               `json:"sessionId"`
	SearchText string               `json:"searchText"`
	Page       int                  `json:"page"`
	Cursor     string               `json:"cursor"`
	Location   *geo.Coordinates     `json:"location"`
	Filters    models.FilterOptions `json:"filters"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeFeedRequest(w, r)
	if !ok {
		return
	}

	page, err := s.pipeline.Fetch(r.Context(), req)
	if err != nil {
		s.writeFeedError(w, err)
		return
	}

	// Analytics records only once the term stops changing; a newer term for
	// the same session replaces the pending record.
	if req.SearchText != "" {
		userID, query, total := req.UserID, req.SearchText, page.Total
		s.debouncer.Trigger("search:"+req.SessionID, func() {
			ctx, cancel := context.WithTimeout(context.Background(), recordSearchTimeout)
			defer cancel()
			s.search.RecordSearch(ctx, userID, query, total)
		})
	}

	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeFeedRequest(w, r)
	if !ok {
		return
	}

	markers, err := s.pipeline.FetchMarkers(r.Context(), req)
	if err != nil {
		s.writeFeedError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"markers": markers})
}

// handleCategories serves the category list backing the filter controls.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := s.pg.Query(r.Context(), `SELECT id, name, icon FROM categories ORDER BY name`)
	if err != nil {
		s.logger.Error("category query failed", map[string]interface{}{"error": err})
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "category retrieval failed"})
		return
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		var icon sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &icon); err != nil {
			continue
		}
		c.Icon = icon.String
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("category scan failed", map[string]interface{}{"error": err})
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "category retrieval failed"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	suggestions, err := s.search.Suggestions(r.Context(), query)
	if err != nil {
		s.logger.Error("suggestion retrieval failed", map[string]interface{}{
			"query": query,
			"error": err,
		})
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": []models.Suggestion{}})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

func (s *Server) handleRecordSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID      string `json:"userId"`
		Query       string `json:"query"`
		ResultCount int    `json:"resultCount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	s.search.RecordSearch(r.Context(), body.UserID, body.Query, body.ResultCount)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId is required"})
		return
	}

	if err := s.sessionCache.InvalidateFor(r.Context(), body.UserID); err != nil {
		s.logger.Error("session cache invalidation failed", map[string]interface{}{
			"user_id": body.UserID,
			"error":   err,
		})
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "cache invalidation failed"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"postgres": "ok", "redis": "ok"}

	if err := s.pg.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := s.redis.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, checks)
}

// decodeFeedRequest validates the raw document against the request schema
// before binding it to the typed shape, so unknown fields and out-of-range
// values fail fast with a 400.
func (s *Server) decodeFeedRequest(w http.ResponseWriter, r *http.Request) (feed.Request, bool) {
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return feed.Request{}, false
	}

	if err := validation.ValidateFeedRequest(doc); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: err.Error(),
			Code:  string(stderrors.ErrCodeInvalidFilterFormat),
		})
		return feed.Request{}, false
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return feed.Request{}, false
	}
	var body feedRequestBody
	if err := json.Unmarshal(raw, &body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return feed.Request{}, false
	}

	if body.Filters.SortBy == "" {
		body.Filters.SortBy = models.SortRelevance
	}
	if body.Filters.ListingType == "" {
		body.Filters.ListingType = models.ListingTypeAll
	}

	return feed.Request{
		UserID:     body.UserID,
		SessionID:  body.SessionID,
		SearchText: body.SearchText,
		Page:       body.Page,
		Cursor:     body.Cursor,
		Location:   body.Location,
		Filters:    body.Filters,
	}, true
}

func (s *Server) writeFeedError(w http.ResponseWriter, err error) {
	switch {
	case err == feed.ErrFetchInFlight:
		s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
	case err == feed.ErrStaleCycle:
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case stderrors.CodeOf(err) == stderrors.ErrCodeInvalidCursor,
		stderrors.CodeOf(err) == stderrors.ErrCodeInvalidFilterFormat:
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: err.Error(),
			Code:  string(stderrors.CodeOf(err)),
		})
	case stderrors.CodeOf(err) == stderrors.ErrCodeQueryTimeout:
		s.writeJSON(w, http.StatusGatewayTimeout, errorResponse{
			Error: "feed fetch timed out",
			Code:  string(stderrors.ErrCodeQueryTimeout),
		})
	default:
		s.logger.Error("feed fetch failed", map[string]interface{}{"error": err})
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "feed fetch failed"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", map[string]interface{}{"error": err})
	}
}
