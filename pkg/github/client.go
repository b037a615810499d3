// Package github implements the GitHub release client used to install
// manifest dependencies. It resolves a dependency's version selector to a
// concrete release, matches release assets against the pathspec pattern and
// downloads the matched asset.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sink-tools/sink/pkg/cache"
	"github.com/sink-tools/sink/pkg/errors"
	"github.com/sink-tools/sink/pkg/httputil"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiTimeout     = 10 * time.Second
)

// CacheNamespace prefixes every cache key the client writes, so shared
// backends can clear sink entries without touching unrelated keys.
const CacheNamespace = "github:release"

// Client provides access to the GitHub releases API. It handles caching,
// automatic retries and optional authentication.
type Client struct {
	api      *http.Client
	download *http.Client
	cache    cache.Cache
	ttl      time.Duration
	baseURL  string
	headers  map[string]string
}

// NewClient creates a GitHub API client. Pass an empty token for
// unauthenticated requests (lower rate limits) and a nil store to disable
// caching.
func NewClient(token string, store cache.Cache, ttl time.Duration) *Client {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	if store == nil {
		store = cache.NewNullCache()
	}
	return &Client{
		api: &http.Client{Timeout: apiTimeout},
		// Asset downloads can be large; the per-request context bounds them
		// instead of a client timeout.
		download: &http.Client{},
		cache:    store,
		ttl:      ttl,
		baseURL:  defaultBaseURL,
		headers:  headers,
	}
}

// cached retrieves a value from cache or executes fetch and caches the
// result. The fetch function populates v; on success v is stored under key.
func (c *Client) cached(ctx context.Context, key string, v any, fetch func() error) error {
	if data, ok, _ := c.cache.Get(ctx, key); ok {
		return json.Unmarshal(data, v)
	}
	if err := httputil.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return nil
}

// getJSON performs a single GET against the API and decodes the response
// into v. Transient failures come back wrapped as retryable.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to build request for %s", url)
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "request to %s failed", url))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, url); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "failed to decode response from %s", url)
	}
	return nil
}

func checkStatus(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s not found", url)
	case code == http.StatusForbidden || code == http.StatusTooManyRequests:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork,
			"rate limited by GitHub (status %d); set a token to raise the limit", code))
	case code >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "status %d from %s", code, url))
	default:
		return errors.New(errors.ErrCodeNetwork, "status %d from %s", code, url)
	}
}

func (c *Client) repoURL(owner, repo, suffix string) string {
	return fmt.Sprintf("%s/repos/%s/%s%s", c.baseURL, owner, repo, suffix)
}

// fetchBody streams url through the download client. Callers own the body.
func (c *Client) fetchBody(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to build request for %s", url)
	}
	if auth, ok := c.headers["Authorization"]; ok {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "download from %s failed", url)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.New(errors.ErrCodeNetwork, "status %d from %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}
