package cli

import (
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/sink-tools/sink/pkg/cache"
	"github.com/sink-tools/sink/pkg/errors"
	"github.com/sink-tools/sink/pkg/manifest"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	return New(io.Discard, LogInfo)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newTestCLI(t).RootCommand()

	want := []string{"github", "install", "remove", "config", "cache", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestManifestPathPrecedence(t *testing.T) {
	c := newTestCLI(t)

	if got := c.manifestPath(); got != defaultManifestName {
		t.Errorf("manifestPath() = %q, want %q", got, defaultManifestName)
	}

	c.settings.Manifest = "env/sink.toml"
	if got := c.manifestPath(); got != "env/sink.toml" {
		t.Errorf("manifestPath() = %q, want env value", got)
	}

	c.manifestFlag = "flag/sink.toml"
	if got := c.manifestPath(); got != "flag/sink.toml" {
		t.Errorf("manifestPath() = %q, want flag value", got)
	}
}

func mustParseManifest(t *testing.T, text string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCollectTargetsSingular(t *testing.T) {
	m := mustParseManifest(t, `[GitHub.dependencies]
fd = "latest"
bat = "v0.24.0"
`)
	p, _ := m.Provider(sectionGitHub)

	targets, err := collectTargets(m, p, "", nil, false)
	if err != nil {
		t.Fatalf("collectTargets() failed: %v", err)
	}
	if len(targets) != 2 || targets[0].key != "fd" || targets[1].key != "bat" {
		t.Errorf("targets = %+v, want fd then bat", targets)
	}

	targets, err = collectTargets(m, p, "", []string{"bat"}, false)
	if err != nil || len(targets) != 1 || targets[0].key != "bat" {
		t.Errorf("subset targets = %+v, %v", targets, err)
	}

	if _, err := collectTargets(m, p, "", []string{"missing"}, false); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown key = %v, want %v", err, errors.ErrCodeNotFound)
	}
	if _, err := collectTargets(m, p, "dev", nil, false); !errors.Is(err, errors.ErrCodeGroupedIntoSingular) {
		t.Errorf("group on singular = %v, want %v", err, errors.ErrCodeGroupedIntoSingular)
	}
}

func TestCollectTargetsGrouped(t *testing.T) {
	m := mustParseManifest(t, `[GitHub.dependencies.dev]
fd = "latest"

[GitHub.dependencies.prod]
bat = "latest"
rg = "latest"
`)
	p, _ := m.Provider(sectionGitHub)

	targets, err := collectTargets(m, p, "prod", nil, false)
	if err != nil {
		t.Fatalf("collectTargets() failed: %v", err)
	}
	if len(targets) != 2 || targets[0].name() != "prod.bat" {
		t.Errorf("targets = %+v, want prod group", targets)
	}

	targets, err = collectTargets(m, p, "", nil, true)
	if err != nil || len(targets) != 3 {
		t.Errorf("--all targets = %+v, %v; want 3", targets, err)
	}

	if _, err := collectTargets(m, p, "", nil, false); !errors.Is(err, errors.ErrCodeMissingGroup) {
		t.Errorf("no group = %v, want %v", err, errors.ErrCodeMissingGroup)
	}
	if _, err := collectTargets(m, p, "ci", nil, false); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown group = %v, want %v", err, errors.ErrCodeNotFound)
	}
}

func TestCollectTargetsUsesDefaultGroup(t *testing.T) {
	m := mustParseManifest(t, `default-group = "dev"

[GitHub.dependencies.dev]
fd = "latest"
`)
	p, _ := m.Provider(sectionGitHub)

	targets, err := collectTargets(m, p, "", nil, false)
	if err != nil {
		t.Fatalf("collectTargets() failed: %v", err)
	}
	if len(targets) != 1 || targets[0].name() != "dev.fd" {
		t.Errorf("targets = %+v, want dev.fd via default group", targets)
	}
}

func TestNewInstallerCleanupClosesCache(t *testing.T) {
	c := newTestCLI(t)
	c.settings.NoCache = true

	installer, closeCache := c.newInstaller(context.Background())
	if installer == nil {
		t.Fatal("newInstaller() returned nil installer")
	}
	closeCache()
}

func TestCacheClearRemovesFiles(t *testing.T) {
	c := newTestCLI(t)
	dir := t.TempDir()
	c.settings.CacheDir = dir
	c.settings.RedisAddr = ""

	store, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache() failed: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, cache.Key("github:release:latest", "sharkdp", "fd"), []byte("{}"), 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	cmd := c.cacheClearCommand()
	cmd.SetContext(ctx)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}

	files := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files++
		}
		return nil
	})
	if files != 0 {
		t.Errorf("%d cache files left after clear", files)
	}
}
