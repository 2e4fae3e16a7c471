// Package ingest turns an uploaded codebase into a stored project.
//
// Three sources are supported: a local directory, a ZIP archive (from disk or
// memory) and a public GitHub repository, which is fetched as a branch
// archive. Every source is reduced to a list of candidate files, filtered by
// IsCodeFile, read concurrently and written in batched transactions.
//
// Files larger than MaxFileBytes or not valid UTF-8 are skipped and counted
// in Statistics.FilesSkipped. Read failures are counted in FilesFailed and do
// not abort the upload.
//
// Basic usage:
//
//	ing := ingest.New(store, ingest.DefaultConfig(), logger)
//	stats, err := ing.IngestGitHub(ctx, "https://github.com/owner/repo", "")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(stats.ProjectID, stats.FilesStored)
package ingest
