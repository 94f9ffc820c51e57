package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bookfinder/bookfinder/internal/logger"
)

func TestOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewHTTPChecker(server.URL, logger.Get())
	assert.True(t, checker.Online(context.Background()))
}

func TestOnlineAnyStatusCounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	checker := NewHTTPChecker(server.URL, logger.Get())
	assert.True(t, checker.Online(context.Background()))
}

func TestOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // probe target is gone

	checker := NewHTTPChecker(server.URL, logger.Get())
	assert.False(t, checker.Online(context.Background()))
}
