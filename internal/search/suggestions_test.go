// internal/search/suggestions_test.go
package search

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeed/internal/common/database"
	"marketfeed/internal/common/logger"
)

func newTestService(t *testing.T, recordSearches bool) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(&database.PostgresClient{DB: db}, nil, "search_suggestions", 8, recordSearches, logger.NewTestLogger(t))
	return svc, mock
}

func TestSuggestionsPostgresFallback(t *testing.T) {
	svc, mock := newTestService(t, false)

	mock.ExpectQuery("SELECT DISTINCT title FROM service_listings").
		WithArgs("plum%", 8).
		WillReturnRows(sqlmock.NewRows([]string{"title"}).
			AddRow("Plumbing repair").
			AddRow("Plumbing installation"))

	got, err := svc.Suggestions(context.Background(), "plum")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Plumbing repair", got[0].Text)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSuggestionsEmptyQuery(t *testing.T) {
	svc, mock := newTestService(t, false)

	got, err := svc.Suggestions(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet(), "no query must reach the database")
}

func TestRecordSearch(t *testing.T) {
	svc, mock := newTestService(t, true)

	mock.ExpectExec("INSERT INTO search_analytics").
		WithArgs(sqlmock.AnyArg(), "user-1", "plumber", 12).
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc.RecordSearch(context.Background(), "user-1", "plumber", 12)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSearchDisabled(t *testing.T) {
	svc, mock := newTestService(t, false)

	svc.RecordSearch(context.Background(), "user-1", "plumber", 12)
	require.NoError(t, mock.ExpectationsWereMet(), "disabled recording must not write")
}

func TestRecordSearchSkipsEmptyQuery(t *testing.T) {
	svc, mock := newTestService(t, true)

	svc.RecordSearch(context.Background(), "user-1", "  ", 0)
	require.NoError(t, mock.ExpectationsWereMet())
}
