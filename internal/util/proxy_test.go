package util

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProxyEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy", "NO_PROXY", "no_proxy", "REQUEST_METHOD"} {
		t.Setenv(key, "")
	}
}

func proxyFor(t *testing.T, proxy func(*http.Request) (*url.URL, error), rawURL string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	u, err := proxy(req)
	require.NoError(t, err)
	if u == nil {
		return ""
	}
	return u.String()
}

func TestProxyFunc(t *testing.T) {
	clearProxyEnv(t)

	proxy := ProxyFunc("http://proxy.corp:3128", "", "contracts.internal")

	assert.Equal(t, "http://proxy.corp:3128", proxyFor(t, proxy, "http://example.com/nda.pdf"))
	assert.Equal(t, "http://proxy.corp:3128", proxyFor(t, proxy, "https://api.openai.com/v1/chat/completions"))
	assert.Empty(t, proxyFor(t, proxy, "https://contracts.internal/msa.docx"))
}

func TestProxyFunc_SeparateHTTPS(t *testing.T) {
	clearProxyEnv(t)

	proxy := ProxyFunc("http://plain:3128", "http://secure:3129", "")

	assert.Equal(t, "http://plain:3128", proxyFor(t, proxy, "http://example.com/"))
	assert.Equal(t, "http://secure:3129", proxyFor(t, proxy, "https://example.com/"))
}

func TestNewHTTPClient(t *testing.T) {
	clearProxyEnv(t)

	client := NewHTTPClient(5*time.Second, "http://proxy.corp:3128", "", "")
	assert.Equal(t, 5*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, "http://proxy.corp:3128", proxyFor(t, transport.Proxy, "http://example.com/"))
}
