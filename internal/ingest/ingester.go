package ingest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/codeqa-mcp/internal/retry"
	"github.com/dshills/codeqa-mcp/internal/slogutil"
	"github.com/dshills/codeqa-mcp/internal/storage"
)

// Default limits
const (
	DefaultBatchSize       = 100
	DefaultMaxFileBytes    = 1024 * 1024
	DefaultMaxArchiveBytes = 100 * 1024 * 1024
	DefaultGitHubTimeout   = 30 * time.Second
	DefaultGitHubBaseURL   = "https://github.com"

	DefaultZipProjectName    = "Uploaded project"
	DefaultGitHubProjectName = "GitHub repo"
)

var (
	// ErrNotDirectory is returned when a directory upload points at something else
	ErrNotDirectory = errors.New("not a directory")
	// ErrInvalidArchive is returned for unreadable or corrupted ZIP data
	ErrInvalidArchive = errors.New("invalid or corrupted zip file")
	// ErrArchiveTooLarge is returned when a ZIP exceeds MaxArchiveBytes
	ErrArchiveTooLarge = errors.New("archive too large")
	// ErrInvalidGitHubURL is returned for URLs that do not name a GitHub repository
	ErrInvalidGitHubURL = errors.New("invalid GitHub URL")
	// ErrDownloadFailed is returned when no branch archive could be fetched
	ErrDownloadFailed = errors.New("failed to download repository")
)

// Config contains configuration for the ingester
type Config struct {
	Workers         int   // Number of concurrent readers (default: runtime.NumCPU())
	BatchSize       int   // Number of files to commit per transaction (default: 100)
	MaxFileBytes    int64 // Larger files are skipped
	MaxArchiveBytes int64 // Largest accepted ZIP upload or download
	GitHub          GitHubConfig
}

// GitHubConfig controls repository archive downloads
type GitHubConfig struct {
	BaseURL  string   // scheme and host serving /{owner}/{repo}/archive/refs/heads/{branch}.zip
	Branches []string // tried in order
	Timeout  time.Duration
	Retry    retry.Config
}

// DefaultConfig returns the standard ingestion limits
func DefaultConfig() Config {
	return Config{
		Workers:         runtime.NumCPU(),
		BatchSize:       DefaultBatchSize,
		MaxFileBytes:    DefaultMaxFileBytes,
		MaxArchiveBytes: DefaultMaxArchiveBytes,
		GitHub: GitHubConfig{
			BaseURL:  DefaultGitHubBaseURL,
			Branches: []string{"main", "master"},
			Timeout:  DefaultGitHubTimeout,
			Retry:    retry.DefaultConfig(),
		},
	}
}

// Statistics contains statistics about one upload
type Statistics struct {
	ProjectID      string
	Name           string
	FilesStored    int
	FilesSkipped   int // too large or not UTF-8 text
	FilesFailed    int
	FilesDuplicate int // stored files whose content repeats another stored file
	Duration       time.Duration
	Errors         []string
}

// entry is one candidate file discovered in a source
type entry struct {
	path string // project-relative, forward slashes
	size int64
	open func() (io.ReadCloser, error)
}

// Ingester stores the code files of a directory, ZIP archive or GitHub
// repository as a new project
type Ingester struct {
	storage    storage.Storage
	cfg        Config
	logger     *slog.Logger
	httpClient *http.Client
}

// New creates a new Ingester instance
func New(store storage.Storage, cfg Config, logger *slog.Logger) *Ingester {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = def.MaxFileBytes
	}
	if cfg.MaxArchiveBytes <= 0 {
		cfg.MaxArchiveBytes = def.MaxArchiveBytes
	}
	if cfg.GitHub.BaseURL == "" {
		cfg.GitHub.BaseURL = def.GitHub.BaseURL
	}
	if len(cfg.GitHub.Branches) == 0 {
		cfg.GitHub.Branches = def.GitHub.Branches
	}
	if cfg.GitHub.Timeout <= 0 {
		cfg.GitHub.Timeout = def.GitHub.Timeout
	}
	if cfg.GitHub.Retry.MaxAttempts <= 0 {
		cfg.GitHub.Retry = def.GitHub.Retry
	}

	return &Ingester{
		storage: store,
		cfg:     cfg,
		logger:  slogutil.OrDiscard(logger),
		httpClient: &http.Client{
			Timeout: cfg.GitHub.Timeout,
		},
	}
}

// IngestDirectory stores every code file below root as a new project.
// An empty name defaults to the directory's base name.
func (ing *Ingester) IngestDirectory(ctx context.Context, root, name string) (*Statistics, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	entries, err := discoverFiles(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	if name == "" {
		name = filepath.Base(abs)
	}
	return ing.store(ctx, name, "directory:"+abs, entries)
}

// discoverFiles walks root in lexical order, pruning skipped directories
func discoverFiles(root string) ([]entry, error) {
	entries := make([]entry, 0)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && skipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks and devices are never followed
		if !d.Type().IsRegular() || !IsCodeFile(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		full := p
		entries = append(entries, entry{
			path: rel,
			size: info.Size(),
			open: func() (io.ReadCloser, error) { return os.Open(full) },
		})
		return nil
	})

	return entries, err
}

// store creates the project and writes its files batch by batch. Files in a
// batch are read concurrently; batches are committed in discovery order so
// the stored order is deterministic.
func (ing *Ingester) store(ctx context.Context, name, source string, entries []entry) (*Statistics, error) {
	startTime := time.Now()

	project := &storage.Project{
		ID:     uuid.NewString(),
		Name:   name,
		Source: source,
	}
	if err := ing.storage.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	stats := &Statistics{
		ProjectID: project.ID,
		Name:      project.Name,
		Errors:    make([]string, 0),
	}

	var skipped, failed int32
	var mu sync.Mutex // Protect stats.Errors

	for i := 0; i < len(entries); i += ing.cfg.BatchSize {
		end := min(i+ing.cfg.BatchSize, len(entries))

		files, err := ing.readBatch(ctx, project.ID, entries[i:end], &skipped, &failed, &mu, stats)
		if err != nil {
			return nil, err
		}
		if err := ing.writeBatch(ctx, files); err != nil {
			return nil, err
		}
		stats.FilesStored += len(files)
	}

	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)

	// Update project statistics
	count, err := ing.storage.CountFiles(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	project.FileCount = count
	if stats.FilesDuplicate, err = ing.storage.CountDuplicateFiles(ctx, project.ID); err != nil {
		return nil, fmt.Errorf("failed to count duplicate files: %w", err)
	}
	if err := ing.storage.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project stats: %w", err)
	}

	stats.Duration = time.Since(startTime)
	ing.logger.Info("upload completed",
		"project_id", project.ID,
		"name", project.Name,
		"source", source,
		"stored", stats.FilesStored,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"duplicate", stats.FilesDuplicate,
		"duration", stats.Duration)

	return stats, nil
}

// readBatch reads one batch concurrently. The returned slice keeps the
// batch order and omits skipped and failed files.
func (ing *Ingester) readBatch(ctx context.Context, projectID string, batch []entry,
	skipped, failed *int32, mu *sync.Mutex, stats *Statistics) ([]*storage.File, error) {

	// Create worker pool with semaphore
	semaphore := make(chan struct{}, ing.cfg.Workers)
	results := make([]*storage.File, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i := range batch {
		e := batch[i]
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
				// Acquire semaphore
			}
			defer func() { <-semaphore }()

			content, ok, err := ing.readEntry(e)
			if err != nil {
				atomic.AddInt32(failed, 1)
				mu.Lock()
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", e.path, err))
				mu.Unlock()
				ing.logger.Warn("failed to read file", "path", e.path, "error", err)
				// Continue with other files
				return nil
			}
			if !ok {
				atomic.AddInt32(skipped, 1)
				return nil
			}

			results[i] = &storage.File{
				ProjectID:   projectID,
				Path:        e.path,
				Content:     content,
				ContentHash: sha256.Sum256([]byte(content)),
				SizeBytes:   int64(len(content)),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make([]*storage.File, 0, len(results))
	for _, f := range results {
		if f != nil {
			files = append(files, f)
		}
	}
	return files, nil
}

// readEntry returns the text of e. ok is false for files that are too large
// or are not valid UTF-8.
func (ing *Ingester) readEntry(e entry) (string, bool, error) {
	if e.size > ing.cfg.MaxFileBytes {
		return "", false, nil
	}

	rc, err := e.open()
	if err != nil {
		return "", false, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, ing.cfg.MaxFileBytes+1))
	if err != nil {
		return "", false, err
	}
	if int64(len(data)) > ing.cfg.MaxFileBytes || !utf8.Valid(data) {
		return "", false, nil
	}
	return string(data), true, nil
}

// writeBatch stores files within a single transaction
func (ing *Ingester) writeBatch(ctx context.Context, files []*storage.File) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := ing.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, f := range files {
		if err := tx.UpsertFile(ctx, f); err != nil {
			return fmt.Errorf("failed to store %s: %w", f.Path, err)
		}
	}

	// Commit the batch
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
