package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/dshills/codeqa-mcp/internal/retry"
)

var githubURLPattern = regexp.MustCompile(`^https?://(www\.)?github\.com/([\w.-]+)/([\w.-]+?)(\.git)?/?$`)

// ParseGitHubURL extracts owner and repository from a repository URL such as
// https://github.com/owner/repo
func ParseGitHubURL(raw string) (owner, repo string, err error) {
	m := githubURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidGitHubURL, raw)
	}
	return m[2], m[3], nil
}

// IngestGitHub downloads the archive of a public GitHub repository and
// ingests it. Branches are tried in configured order. An empty name defaults
// to the repository name.
func (ing *Ingester) IngestGitHub(ctx context.Context, repoURL, name string) (*Statistics, error) {
	owner, repo, err := ParseGitHubURL(repoURL)
	if err != nil {
		return nil, err
	}

	data, branch, err := ing.downloadArchive(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to import GitHub repository %s/%s: %w", owner, repo, err)
	}
	ing.logger.Debug("downloaded repository archive", "owner", owner, "repo", repo, "branch", branch, "bytes", len(data))

	if name == "" {
		name = repo
	}
	source := fmt.Sprintf("github:https://github.com/%s/%s", owner, repo)
	return ing.ingestZip(ctx, data, name, source)
}

// ArchiveURL returns the download URL of one branch archive
func (ing *Ingester) ArchiveURL(owner, repo, branch string) string {
	return fmt.Sprintf("%s/%s/%s/archive/refs/heads/%s.zip",
		strings.TrimSuffix(ing.cfg.GitHub.BaseURL, "/"), owner, repo, branch)
}

func (ing *Ingester) downloadArchive(ctx context.Context, owner, repo string) ([]byte, string, error) {
	var lastErr error
	for _, branch := range ing.cfg.GitHub.Branches {
		url := ing.ArchiveURL(owner, repo, branch)

		data, err := retry.Do(ctx, ing.cfg.GitHub.Retry, func() ([]byte, error) {
			return ing.fetch(ctx, url)
		})
		if err == nil {
			return data, branch, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		ing.logger.Warn("archive download failed", "url", url, "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = ErrDownloadFailed
	}
	return nil, "", fmt.Errorf("%w: %v", ErrDownloadFailed, lastErr)
}

// fetch downloads one archive. Client errors are permanent, server errors
// and transport failures are retried.
func (ing *Ingester) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	resp, err := ing.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(statusErr)
		}
		return nil, statusErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, ing.cfg.MaxArchiveBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > ing.cfg.MaxArchiveBytes {
		return nil, retry.Permanent(ErrArchiveTooLarge)
	}
	return data, nil
}
