package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/robots.txt", r.URL.Path)
		hits.Add(1)
		_, _ = fmt.Fprint(w, "User-agent: clausewise\nDisallow: /private/\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "clausewise/0.1 (+https://example.com/bot)")

	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/private/nda.pdf")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = checker.CanFetch(context.Background(), server.URL+"/terms.html")
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.Equal(t, int32(1), hits.Load(), "robots.txt should be downloaded once per origin")
}

func TestRobotsChecker_StatusHandling(t *testing.T) {
	tests := map[string]struct {
		status  int
		allowed bool
	}{
		"missing":      {status: http.StatusNotFound, allowed: true},
		"forbidden":    {status: http.StatusForbidden, allowed: true},
		"server error": {status: http.StatusServiceUnavailable, allowed: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			checker := NewRobotsChecker(server.Client(), "clausewise")
			allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/msa.docx")
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestRobotsChecker_Unreachable(t *testing.T) {
	checker := NewRobotsChecker(&http.Client{Timeout: time.Second}, "clausewise")

	allowed, delay, err := checker.CanFetch(context.Background(), "http://127.0.0.1:1/nda.txt")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, delay)
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	checker := NewRobotsChecker(http.DefaultClient, "clausewise")

	_, _, err := checker.CanFetch(context.Background(), "nda.txt")
	assert.Error(t, err)
}

func TestProductToken(t *testing.T) {
	assert.Equal(t, "clausewise", productToken("clausewise/0.1 (+https://example.com)"))
	assert.Equal(t, "curl", productToken("curl"))
	assert.Equal(t, "", productToken(""))
}
