package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// IngestZip stores the code files of an in-memory ZIP archive as a new
// project. When every member lives under one top-level directory, that
// directory is stripped from the stored paths.
func (ing *Ingester) IngestZip(ctx context.Context, data []byte, name string) (*Statistics, error) {
	return ing.ingestZip(ctx, data, name, "zip")
}

// IngestZipFile reads a ZIP archive from disk and ingests it. An empty name
// defaults to the archive's file name without the .zip extension.
func (ing *Ingester) IngestZipFile(ctx context.Context, path, name string) (*Statistics, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > ing.cfg.MaxArchiveBytes {
		return nil, fmt.Errorf("%s is %d bytes: %w", path, info.Size(), ErrArchiveTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return ing.ingestZip(ctx, data, name, "zip:"+abs)
}

func (ing *Ingester) ingestZip(ctx context.Context, data []byte, name, source string) (*Statistics, error) {
	if int64(len(data)) > ing.cfg.MaxArchiveBytes {
		return nil, fmt.Errorf("archive is %d bytes: %w", len(data), ErrArchiveTooLarge)
	}

	entries, err := zipEntries(data)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = DefaultZipProjectName
	}
	return ing.store(ctx, name, source, entries)
}

// zipEntries lists the code files of an archive in member order
func zipEntries(data []byte) ([]entry, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	prefix := commonRoot(r.File)

	entries := make([]entry, 0)
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !f.Mode().IsRegular() {
			continue
		}

		p := cleanEntryPath(f.Name)
		if p == "" {
			continue
		}
		p = strings.TrimPrefix(p, prefix)
		if p == "" || !IsCodeFile(p) {
			continue
		}

		member := f
		entries = append(entries, entry{
			path: p,
			size: int64(member.UncompressedSize64),
			open: func() (io.ReadCloser, error) { return member.Open() },
		})
	}
	return entries, nil
}

// commonRoot returns "dir/" when every member sits below the same single
// top-level directory, and "" otherwise
func commonRoot(files []*zip.File) string {
	root := ""
	for _, f := range files {
		p := cleanEntryPath(f.Name)
		if p == "" {
			continue
		}

		top, _, nested := strings.Cut(p, "/")
		if !nested && !f.FileInfo().IsDir() {
			// a file at the top level
			return ""
		}
		if root == "" {
			root = top
		} else if root != top {
			return ""
		}
	}
	if root == "" {
		return ""
	}
	return root + "/"
}
