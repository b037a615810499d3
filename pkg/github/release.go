package github

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/sink-tools/sink/pkg/cache"
	"github.com/sink-tools/sink/pkg/errors"
	"github.com/sink-tools/sink/pkg/manifest"
)

// Release is a GitHub release with its downloadable assets.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset is a single downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Release resolves a version selector to a concrete release:
//
//   - latest: the release GitHub marks as latest (never a prerelease)
//   - prerelease: the most recently published release, prereleases included
//   - a tag: exactly that release
func (c *Client) Release(ctx context.Context, owner, repo string, version manifest.Version) (*Release, error) {
	switch {
	case version.IsTag():
		return c.releaseByTag(ctx, owner, repo, version.TagName())
	case version.IsPrerelease():
		return c.newestRelease(ctx, owner, repo)
	default:
		return c.latestRelease(ctx, owner, repo)
	}
}

func (c *Client) latestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	var rel Release
	key := cache.Key(CacheNamespace+":latest", owner, repo)
	url := c.repoURL(owner, repo, "/releases/latest")
	if err := c.cached(ctx, key, &rel, func() error {
		return c.getJSON(ctx, url, &rel)
	}); err != nil {
		return nil, releaseErr(err, owner, repo, "latest")
	}
	return &rel, nil
}

func (c *Client) releaseByTag(ctx context.Context, owner, repo, tag string) (*Release, error) {
	var rel Release
	key := cache.Key(CacheNamespace+":tag", owner, repo, tag)
	url := c.repoURL(owner, repo, "/releases/tags/"+tag)
	if err := c.cached(ctx, key, &rel, func() error {
		return c.getJSON(ctx, url, &rel)
	}); err != nil {
		return nil, releaseErr(err, owner, repo, tag)
	}
	return &rel, nil
}

func (c *Client) newestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	var list []Release
	key := cache.Key(CacheNamespace+":newest", owner, repo)
	url := c.repoURL(owner, repo, "/releases?per_page=30")
	if err := c.cached(ctx, key, &list, func() error {
		return c.getJSON(ctx, url, &list)
	}); err != nil {
		return nil, releaseErr(err, owner, repo, "prerelease")
	}

	// The API returns newest first; drafts are never installable. Prefer the
	// newest prerelease and fall back to the newest stable release when the
	// repository has stopped publishing prereleases.
	var stable *Release
	for i := range list {
		if list[i].Draft {
			continue
		}
		if list[i].Prerelease {
			return &list[i], nil
		}
		if stable == nil {
			stable = &list[i]
		}
	}
	if stable != nil {
		return stable, nil
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no releases published for %s/%s", owner, repo)
}

func releaseErr(err error, owner, repo, selector string) error {
	if errors.Is(err, errors.ErrCodeNotFound) {
		return errors.New(errors.ErrCodeNotFound,
			"no release %q for %s/%s", selector, owner, repo)
	}
	return err
}

// MatchAsset returns the first asset whose name matches the glob pattern.
func (r *Release) MatchAsset(pattern string) (*Asset, error) {
	for i := range r.Assets {
		ok, err := path.Match(pattern, r.Assets[i].Name)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "bad asset pattern %q", pattern)
		}
		if ok {
			return &r.Assets[i], nil
		}
	}

	names := make([]string, len(r.Assets))
	for i, a := range r.Assets {
		names[i] = a.Name
	}
	return nil, errors.New(errors.ErrCodeNotFound,
		"no asset matching %q in release %s (assets: %s)",
		pattern, r.TagName, strings.Join(names, ", "))
}
