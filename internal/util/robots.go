package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

const (
	robotsTTL      = time.Hour
	robotsErrorTTL = time.Minute
	robotsMaxBytes = 512 << 10
)

// RobotsChecker decides whether contract URLs may be fetched.
// Parsed robots.txt files are kept per origin for an hour.
type RobotsChecker struct {
	client *http.Client
	agent  string
	rules  *cache.Cache
}

// NewRobotsChecker creates a checker that downloads robots.txt with client
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		client: client,
		agent:  productToken(userAgent),
		rules:  cache.New(robotsTTL, 2*robotsTTL),
	}
}

// CanFetch reports whether rawURL is allowed and the crawl delay the host
// asks for. A robots.txt that cannot be downloaded allows everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if u.Host == "" {
		return false, 0, fmt.Errorf("parse URL: missing host in %q", rawURL)
	}

	data := r.lookup(ctx, u.Scheme+"://"+u.Host)

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.agent), data.FindGroup(r.agent).CrawlDelay, nil
}

func (r *RobotsChecker) lookup(ctx context.Context, origin string) *robotstxt.RobotsData {
	if cached, ok := r.rules.Get(origin); ok {
		return cached.(*robotstxt.RobotsData)
	}

	data, status, err := r.download(ctx, origin+"/robots.txt")
	if err != nil {
		return allowAll()
	}

	ttl := cache.DefaultExpiration
	if status >= http.StatusInternalServerError {
		ttl = robotsErrorTTL
	}
	r.rules.Set(origin, data, ttl)
	return data
}

func (r *RobotsChecker) download(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBytes))
	if err != nil {
		return nil, 0, err
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, 0, err
	}
	return data, resp.StatusCode, nil
}

func allowAll() *robotstxt.RobotsData {
	data, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	return data
}

// productToken reduces "clausewise/0.1 (+https://...)" to "clausewise"
func productToken(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	product, _, _ := strings.Cut(fields[0], "/")
	return product
}
