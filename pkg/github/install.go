package github

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sink-tools/sink/pkg/errors"
	"github.com/sink-tools/sink/pkg/manifest"
)

// Installer downloads release assets for resolved dependency records.
type Installer struct {
	client *Client
	logger *log.Logger
}

// NewInstaller creates an installer around a GitHub client.
func NewInstaller(client *Client, logger *log.Logger) *Installer {
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{client: client, logger: logger}
}

// Install resolves the record's version to a release, matches an asset
// against the record's pattern and downloads it into destDir. It returns
// the path of the installed file.
func (i *Installer) Install(ctx context.Context, rec *manifest.GitHubDependency, destDir string) (string, error) {
	ps := rec.Pathspec

	rel, err := i.client.Release(ctx, ps.Owner, ps.Repository, rec.Version)
	if err != nil {
		return "", err
	}
	i.logger.Debug("Resolved release", "repo", ps.Owner+"/"+ps.Repository, "tag", rel.TagName)

	asset, err := rel.MatchAsset(ps.Pattern)
	if err != nil {
		return "", err
	}
	i.logger.Debug("Matched asset", "name", asset.Name, "size", asset.Size)

	path, err := i.client.DownloadAsset(ctx, asset, destDir)
	if err != nil {
		return "", err
	}

	if rec.Gitignore {
		if err := ensureIgnored(destDir, asset.Name); err != nil {
			return "", err
		}
	}
	return path, nil
}

// DownloadAsset streams an asset into destDir. The download goes to a
// uniquely named temp file first and is renamed into place only when
// complete, so an interrupted download never leaves a partial asset behind.
func (c *Client) DownloadAsset(ctx context.Context, asset *Asset, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to create %s", destDir)
	}

	body, err := c.fetchBody(ctx, asset.BrowserDownloadURL)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to download %s", asset.Name)
	}
	defer body.Close()

	tmp := filepath.Join(destDir, "."+uuid.NewString()+".part")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to create temp file for %s", asset.Name)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to write %s", asset.Name)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to write %s", asset.Name)
	}

	final := filepath.Join(destDir, asset.Name)
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to move %s into place", asset.Name)
	}
	return final, nil
}

// ensureIgnored appends name to the .gitignore in dir unless it is already
// listed. The file is created on first use.
func ensureIgnored(dir, name string) error {
	path := filepath.Join(dir, ".gitignore")

	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == name {
				f.Close()
				return nil
			}
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(name + "\n")
	return err
}
