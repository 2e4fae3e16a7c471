// Package storage provides SQLite-based persistence for uploaded projects.
//
// The storage layer manages:
//   - Project metadata (uuid, display name, source)
//   - File paths and full text content
//   - Question and answer history with cited references
//
// # Database Schema
//
// Tables:
//   - projects: one row per upload, keyed by uuid
//   - files: path, content, size and SHA-256 hash, unique per project and path
//   - qa_history: question, answer and references as JSON
//   - schema_version: applied migrations, compared as semver
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.codeqa/codeqa.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	files, err := db.ListFiles(ctx, projectID)
//
// ListFiles is the single bulk read a search needs. It returns files in the
// order they were first stored, which is the order the ranker sees them in
// and therefore the tie-break order between equal scores.
//
// # Transactions
//
// Use transactions for batched writes:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	for _, f := range batch {
//	    if err := tx.UpsertFile(ctx, f); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// The connection pool holds a single connection, so code inside a
// transaction must use the Tx for every call.
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
package storage
