package storage

import (
	"context"
	"time"

	"github.com/dshills/codeqa-mcp/pkg/types"
)

// Storage defines the interface for persisting uploaded projects, their
// files and the question history
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, projectID string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProject(ctx context.Context, project *Project) error

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	ListFiles(ctx context.Context, projectID string) ([]types.FileRecord, error)
	CountFiles(ctx context.Context, projectID string) (int, error)
	CountDuplicateFiles(ctx context.Context, projectID string) (int, error)

	// History operations
	SaveQA(ctx context.Context, record *QARecord) error
	ListHistory(ctx context.Context, projectID string, limit int) ([]*QARecord, error)
	PruneHistory(ctx context.Context, projectID string, keep int) (int, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)
	Ping(ctx context.Context) error

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Project is one uploaded codebase
type Project struct {
	ID        string // uuid
	Name      string
	Source    string // where the files came from, e.g. "github:https://github.com/o/r"
	FileCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// File is one stored source file of a project
type File struct {
	ID          int64
	ProjectID   string
	Path        string // relative to the project root, forward slashes
	Content     string
	ContentHash [32]byte
	SizeBytes   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// QARecord is one answered question together with the references it cited
type QARecord struct {
	ID         int64
	ProjectID  string
	Question   string
	Answer     string
	References []types.Reference
	CreatedAt  time.Time
}

// Status contains statistics about the database
type Status struct {
	Projects      int
	Files         int
	Questions     int
	SizeMB        float64
	SchemaVersion string
	BuildMode     string
}
