// internal/common/http/client_test.go
package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientTimeout(t *testing.T) {
	assert.Equal(t, defaultTimeout, NewClient(0).httpClient.Timeout, "non-positive timeout falls back to the default")
	assert.Equal(t, 2*time.Second, NewClient(2*time.Second).httpClient.Timeout)
}

func TestDoWithContextHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := NewClient(time.Second).DoWithContext(ctx, req)
	if resp != nil {
		resp.Body.Close()
	}
	assert.ErrorIs(t, err, context.Canceled)
}
