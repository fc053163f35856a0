package roblox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func economyServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/user/currency", r.URL.Path)
		if c, err := r.Cookie(".ROBLOSECURITY"); assert.NoError(t, err) {
			assert.Equal(t, "cookie-1", c.Value)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRobux(t *testing.T) {
	srv := economyServer(t, http.StatusOK, `{"robux":4321}`)
	robux, err := NewEconomyClient(srv.URL+"/").FetchRobux(context.Background(), "cookie-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4321), robux)
}

func TestFetchRobux_RejectedCookie(t *testing.T) {
	srv := economyServer(t, http.StatusUnauthorized, `{"errors":[{"code":0,"message":"Authorization has been denied"}]}`)
	_, err := NewEconomyClient(srv.URL).FetchRobux(context.Background(), "cookie-1")
	assert.ErrorIs(t, err, domain.ErrInvalidCookie)
}

func TestFetchRobux_APIError(t *testing.T) {
	srv := economyServer(t, http.StatusTooManyRequests, `{"errors":[{"code":0,"message":"Too many requests"}]}`)
	_, err := NewEconomyClient(srv.URL).FetchRobux(context.Background(), "cookie-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too many requests")
}
