package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sink-tools/sink/pkg/cache"
	"github.com/sink-tools/sink/pkg/errors"
	"github.com/sink-tools/sink/pkg/manifest"
)

// newTestServer serves a minimal releases API for sharkdp/fd plus the asset
// payloads themselves.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	asset := func(name string, size int) string {
		return fmt.Sprintf(`{"name":%q,"size":%d,"browser_download_url":"%s/assets/%s"}`,
			name, size, srv.URL, name)
	}

	mux.HandleFunc("/repos/sharkdp/fd/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag_name":"v10.2.0","assets":[%s,%s]}`,
			asset("fd-v10.2.0-linux.tar.gz", 100), asset("fd-v10.2.0-macos.tar.gz", 100))
	})
	mux.HandleFunc("/repos/sharkdp/fd/releases/tags/v9.0.0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag_name":"v9.0.0","assets":[%s]}`, asset("fd-v9.0.0-linux.tar.gz", 50))
	})
	mux.HandleFunc("/repos/sharkdp/fd/releases", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"tag_name":"v11.0.0-beta.1","draft":true,"prerelease":true,"assets":[]},
			{"tag_name":"v10.2.0","assets":[]},
			{"tag_name":"v11.0.0-alpha.2","prerelease":true,"assets":[%s]}]`, asset("fd-v11.0.0-alpha.2-linux.tar.gz", 70))
	})
	mux.HandleFunc("/repos/sharkdp/bat/releases", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"tag_name":"v0.25.0","assets":[]}]`)
	})
	mux.HandleFunc("/assets/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "payload of %s", strings.TrimPrefix(r.URL.Path, "/assets/"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient("", cache.NewNullCache(), 0)
	c.baseURL = newTestServer(t).URL
	return c
}

func TestReleaseLatest(t *testing.T) {
	c := newTestClient(t)
	rel, err := c.Release(context.Background(), "sharkdp", "fd", manifest.Latest())
	if err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if rel.TagName != "v10.2.0" {
		t.Errorf("tag = %q, want v10.2.0", rel.TagName)
	}
	if len(rel.Assets) != 2 {
		t.Errorf("assets = %d, want 2", len(rel.Assets))
	}
}

func TestReleaseByTag(t *testing.T) {
	c := newTestClient(t)
	rel, err := c.Release(context.Background(), "sharkdp", "fd", manifest.Tag("v9.0.0"))
	if err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if rel.TagName != "v9.0.0" {
		t.Errorf("tag = %q, want v9.0.0", rel.TagName)
	}
}

func TestReleaseMissingTag(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Release(context.Background(), "sharkdp", "fd", manifest.Tag("v0.0.0"))
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("Release() = %v, want %v", err, errors.ErrCodeNotFound)
	}
	if !strings.Contains(err.Error(), "v0.0.0") {
		t.Errorf("error %q does not name the selector", err)
	}
}

func TestReleasePrereleaseSkipsDrafts(t *testing.T) {
	c := newTestClient(t)
	rel, err := c.Release(context.Background(), "sharkdp", "fd", manifest.Prerelease())
	if err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if rel.TagName != "v11.0.0-alpha.2" {
		t.Errorf("tag = %q, want v11.0.0-alpha.2 (draft skipped, stable passed over)", rel.TagName)
	}
}

func TestReleasePrereleaseFallsBackToStable(t *testing.T) {
	c := newTestClient(t)
	rel, err := c.Release(context.Background(), "sharkdp", "bat", manifest.Prerelease())
	if err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if rel.TagName != "v0.25.0" {
		t.Errorf("tag = %q, want v0.25.0", rel.TagName)
	}
}

func TestReleaseCaching(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `{"tag_name":"v1.0.0","assets":[]}`)
	}))
	defer srv.Close()

	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient("", store, time.Hour)
	c.baseURL = srv.URL

	for range 2 {
		if _, err := c.Release(context.Background(), "o", "r", manifest.Latest()); err != nil {
			t.Fatalf("Release() failed: %v", err)
		}
	}
	if hits != 1 {
		t.Errorf("API hits = %d, want 1 (second call cached)", hits)
	}
}

func TestMatchAsset(t *testing.T) {
	rel := &Release{
		TagName: "v1.0.0",
		Assets: []Asset{
			{Name: "tool-v1.0.0-linux.tar.gz"},
			{Name: "tool-v1.0.0-macos.tar.gz"},
			{Name: "checksums.txt"},
		},
	}

	tests := []struct {
		name    string
		pattern string
		want    string
		errCode errors.Code
	}{
		{"exact", "checksums.txt", "checksums.txt", ""},
		{"glob", "tool-*-linux.tar.gz", "tool-v1.0.0-linux.tar.gz", ""},
		{"first match wins", "tool-*", "tool-v1.0.0-linux.tar.gz", ""},
		{"star matches all", "*", "tool-v1.0.0-linux.tar.gz", ""},
		{"no match", "*.zip", "", errors.ErrCodeNotFound},
		{"bad pattern", "[", "", errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := rel.MatchAsset(tt.pattern)
			if tt.errCode != "" {
				if !errors.Is(err, tt.errCode) {
					t.Fatalf("MatchAsset(%q) = %v, want %v", tt.pattern, err, tt.errCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("MatchAsset(%q) failed: %v", tt.pattern, err)
			}
			if asset.Name != tt.want {
				t.Errorf("MatchAsset(%q) = %q, want %q", tt.pattern, asset.Name, tt.want)
			}
		})
	}
}

func TestDownloadAsset(t *testing.T) {
	c := newTestClient(t)
	dir := t.TempDir()

	rel, err := c.Release(context.Background(), "sharkdp", "fd", manifest.Latest())
	if err != nil {
		t.Fatal(err)
	}
	asset, err := rel.MatchAsset("*-linux.tar.gz")
	if err != nil {
		t.Fatal(err)
	}

	path, err := c.DownloadAsset(context.Background(), asset, dir)
	if err != nil {
		t.Fatalf("DownloadAsset() failed: %v", err)
	}
	if path != filepath.Join(dir, asset.Name) {
		t.Errorf("path = %q, want %q", path, filepath.Join(dir, asset.Name))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "payload of " + asset.Name; string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}

	// No temp files may survive the download.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestInstall(t *testing.T) {
	c := newTestClient(t)
	dir := t.TempDir()

	rec := &manifest.GitHubDependency{
		Pathspec:  manifest.Pathspec{Owner: "sharkdp", Repository: "fd", Pattern: "*-linux.tar.gz"},
		Version:   manifest.Latest(),
		Gitignore: true,
	}

	inst := NewInstaller(c, nil)
	path, err := inst.Install(context.Background(), rec, dir)
	if err != nil {
		t.Fatalf("Install() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("installed file missing: %v", err)
	}

	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf(".gitignore not written: %v", err)
	}
	if !strings.Contains(string(ignore), "fd-v10.2.0-linux.tar.gz") {
		t.Errorf(".gitignore = %q, missing asset name", ignore)
	}

	// A second install must not duplicate the ignore line.
	if _, err := inst.Install(context.Background(), rec, dir); err != nil {
		t.Fatal(err)
	}
	ignore, _ = os.ReadFile(filepath.Join(dir, ".gitignore"))
	if got := strings.Count(string(ignore), "fd-v10.2.0-linux.tar.gz"); got != 1 {
		t.Errorf(".gitignore lists the asset %d times, want 1", got)
	}
}

func TestInstallSkipsGitignoreWhenDisabled(t *testing.T) {
	c := newTestClient(t)
	dir := t.TempDir()

	rec := &manifest.GitHubDependency{
		Pathspec: manifest.Pathspec{Owner: "sharkdp", Repository: "fd", Pattern: "*-linux.tar.gz"},
		Version:  manifest.Latest(),
	}

	if _, err := NewInstaller(c, nil).Install(context.Background(), rec, dir); err != nil {
		t.Fatalf("Install() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".gitignore")); !os.IsNotExist(err) {
		t.Error(".gitignore written despite gitignore = false")
	}
}
