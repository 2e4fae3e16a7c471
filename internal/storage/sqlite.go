package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/codeqa-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction. Every operation runs on the transaction
// itself: the pool holds a single connection, so reaching back to the DB
// from inside a transaction would block.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// Project operations

func createProject(ctx context.Context, q querier, project *Project) error {
	if project.ID == "" {
		return fmt.Errorf("failed to create project: missing id")
	}
	query := `
		INSERT INTO projects (id, name, source, file_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		project.ID, project.Name, project.Source, project.FileCount, now, now)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("project %s: %w", project.ID, ErrAlreadyExists)
	}
	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateProject(ctx context.Context, project *Project) error {
	return createProject(ctx, s.db, project)
}

const projectColumns = `id, name, source, file_count, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var p Project
	if err := row.Scan(&p.ID, &p.Name, &p.Source, &p.FileCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func getProject(ctx context.Context, q querier, projectID string) (*Project, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, projectID)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

func (s *SQLiteStorage) GetProject(ctx context.Context, projectID string) (*Project, error) {
	return getProject(ctx, s.db, projectID)
}

func listProjects(ctx context.Context, q querier) ([]*Project, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := make([]*Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]*Project, error) {
	return listProjects(ctx, s.db)
}

func updateProject(ctx context.Context, q querier, project *Project) error {
	query := `
		UPDATE projects
		SET name = ?, source = ?, file_count = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		project.Name, project.Source, project.FileCount, now, project.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateProject(ctx context.Context, project *Project) error {
	return updateProject(ctx, s.db, project)
}

// File operations

func upsertFile(ctx context.Context, q querier, file *File) error {
	query := `
		INSERT INTO files (project_id, path, content, size_bytes, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, path) DO UPDATE SET
			content = excluded.content,
			size_bytes = excluded.size_bytes,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now().UTC()
	err := q.QueryRowContext(ctx, query,
		file.ProjectID, file.Path, file.Content, file.SizeBytes, file.ContentHash[:], now, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	file.UpdatedAt = now
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	return nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File) error {
	return upsertFile(ctx, s.db, file)
}

// listFiles is the bulk read behind every search: all paths and contents of
// one project in insertion order
func listFiles(ctx context.Context, q querier, projectID string) ([]types.FileRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT path, content FROM files WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := make([]types.FileRecord, 0)
	for rows.Next() {
		var f types.FileRecord
		if err := rows.Scan(&f.Path, &f.Content); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context, projectID string) ([]types.FileRecord, error) {
	return listFiles(ctx, s.db, projectID)
}

func countFiles(ctx context.Context, q querier, projectID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) CountFiles(ctx context.Context, projectID string) (int, error) {
	return countFiles(ctx, s.db, projectID)
}

// countDuplicateFiles counts files whose content hash repeats an earlier file
// of the same project
func countDuplicateFiles(ctx context.Context, q querier, projectID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) - COUNT(DISTINCT content_hash) FROM files WHERE project_id = ?`,
		projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count duplicate files: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) CountDuplicateFiles(ctx context.Context, projectID string) (int, error) {
	return countDuplicateFiles(ctx, s.db, projectID)
}

// History operations

func saveQA(ctx context.Context, q querier, record *QARecord) error {
	refs := record.References
	if refs == nil {
		refs = []types.Reference{}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("failed to encode references: %w", err)
	}

	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		INSERT INTO qa_history (project_id, question, answer, references_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.ProjectID, record.Question, record.Answer, string(refsJSON), now)
	if err != nil {
		return fmt.Errorf("failed to save question: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = id
	record.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) SaveQA(ctx context.Context, record *QARecord) error {
	return saveQA(ctx, s.db, record)
}

func listHistory(ctx context.Context, q querier, projectID string, limit int) ([]*QARecord, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, question, answer, references_json, created_at
		FROM qa_history
		WHERE project_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*QARecord, 0)
	for rows.Next() {
		var r QARecord
		var refsJSON string
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Question, &r.Answer, &refsJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if err := json.Unmarshal([]byte(refsJSON), &r.References); err != nil {
			return nil, fmt.Errorf("failed to decode references of record %d: %w", r.ID, err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *SQLiteStorage) ListHistory(ctx context.Context, projectID string, limit int) ([]*QARecord, error) {
	return listHistory(ctx, s.db, projectID, limit)
}

// pruneHistory keeps the newest keep records of a project and returns how many were removed
func pruneHistory(ctx context.Context, q querier, projectID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := q.ExecContext(ctx, `
		DELETE FROM qa_history
		WHERE project_id = ? AND id NOT IN (
			SELECT id FROM qa_history WHERE project_id = ? ORDER BY id DESC LIMIT ?
		)
	`, projectID, projectID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStorage) PruneHistory(ctx context.Context, projectID string, keep int) (int, error) {
	return pruneHistory(ctx, s.db, projectID, keep)
}

// Status operations

func getStatus(ctx context.Context, q querier) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	counts := []struct {
		table string
		dst   *int
	}{
		{"projects", &status.Projects},
		{"files", &status.Files},
		{"qa_history", &status.Questions},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
		}
	}

	version, err := currentVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return getStatus(ctx, s.db)
}

func ping(ctx context.Context, q querier) error {
	var one int
	if err := q.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return ping(ctx, s.db)
}

// Transaction operations - delegate to the shared implementations with the tx querier

func (t *sqliteTx) CreateProject(ctx context.Context, project *Project) error {
	return createProject(ctx, t.tx, project)
}

func (t *sqliteTx) GetProject(ctx context.Context, projectID string) (*Project, error) {
	return getProject(ctx, t.tx, projectID)
}

func (t *sqliteTx) ListProjects(ctx context.Context) ([]*Project, error) {
	return listProjects(ctx, t.tx)
}

func (t *sqliteTx) UpdateProject(ctx context.Context, project *Project) error {
	return updateProject(ctx, t.tx, project)
}

func (t *sqliteTx) UpsertFile(ctx context.Context, file *File) error {
	return upsertFile(ctx, t.tx, file)
}

func (t *sqliteTx) ListFiles(ctx context.Context, projectID string) ([]types.FileRecord, error) {
	return listFiles(ctx, t.tx, projectID)
}

func (t *sqliteTx) CountFiles(ctx context.Context, projectID string) (int, error) {
	return countFiles(ctx, t.tx, projectID)
}

func (t *sqliteTx) CountDuplicateFiles(ctx context.Context, projectID string) (int, error) {
	return countDuplicateFiles(ctx, t.tx, projectID)
}

func (t *sqliteTx) SaveQA(ctx context.Context, record *QARecord) error {
	return saveQA(ctx, t.tx, record)
}

func (t *sqliteTx) ListHistory(ctx context.Context, projectID string, limit int) ([]*QARecord, error) {
	return listHistory(ctx, t.tx, projectID, limit)
}

func (t *sqliteTx) PruneHistory(ctx context.Context, projectID string, keep int) (int, error) {
	return pruneHistory(ctx, t.tx, projectID, keep)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return getStatus(ctx, t.tx)
}

func (t *sqliteTx) Ping(ctx context.Context) error {
	return ping(ctx, t.tx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
