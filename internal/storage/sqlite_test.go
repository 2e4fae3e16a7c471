package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeqa-mcp/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func createTestProject(t *testing.T, s Storage, name string) *Project {
	t.Helper()
	project := &Project{ID: uuid.NewString(), Name: name, Source: "directory:/tmp/" + name}
	require.NoError(t, s.CreateProject(context.Background(), project))
	return project
}

func newFile(projectID, path, content string) *File {
	return &File{
		ProjectID:   projectID,
		Path:        path,
		Content:     content,
		ContentHash: sha256.Sum256([]byte(content)),
		SizeBytes:   int64(len(content)),
	}
}

func TestCreateProject(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	project := createTestProject(t, storage, "demo")
	assert.False(t, project.CreatedAt.IsZero())

	duplicate := &Project{ID: project.ID, Name: "again"}
	err := storage.CreateProject(ctx, duplicate)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = storage.CreateProject(ctx, &Project{Name: "no id"})
	assert.Error(t, err)
}

func TestGetProject(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project := createTestProject(t, storage, "demo")

	retrieved, err := storage.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, retrieved.ID)
	assert.Equal(t, "demo", retrieved.Name)
	assert.Equal(t, project.Source, retrieved.Source)

	_, err = storage.GetProject(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProjectsNewestFirst(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	projects, err := storage.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	first := createTestProject(t, storage, "first")
	second := createTestProject(t, storage, "second")

	projects, err = storage.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, second.ID, projects[0].ID)
	assert.Equal(t, first.ID, projects[1].ID)
}

func TestUpdateProject(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project := createTestProject(t, storage, "demo")

	project.FileCount = 42
	project.Name = "renamed"
	require.NoError(t, storage.UpdateProject(ctx, project))

	retrieved, err := storage.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, retrieved.FileCount)
	assert.Equal(t, "renamed", retrieved.Name)

	err = storage.UpdateProject(ctx, &Project{ID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertAndListFiles(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project := createTestProject(t, storage, "demo")

	for _, path := range []string{"src/b.js", "src/a.js", "README.md"} {
		require.NoError(t, storage.UpsertFile(ctx, newFile(project.ID, path, "content of "+path)))
	}

	// re-upserting keeps the original position and replaces the content
	updated := newFile(project.ID, "src/b.js", "new content")
	require.NoError(t, storage.UpsertFile(ctx, updated))
	assert.Greater(t, updated.ID, int64(0))

	files, err := storage.ListFiles(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.FileRecord{
		{Path: "src/b.js", Content: "new content"},
		{Path: "src/a.js", Content: "content of src/a.js"},
		{Path: "README.md", Content: "content of README.md"},
	}, files)

	n, err := storage.CountFiles(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCountDuplicateFiles(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project := createTestProject(t, storage, "demo")
	other := createTestProject(t, storage, "other")

	require.NoError(t, storage.UpsertFile(ctx, newFile(project.ID, "a.js", "same")))
	require.NoError(t, storage.UpsertFile(ctx, newFile(project.ID, "copy/a.js", "same")))
	require.NoError(t, storage.UpsertFile(ctx, newFile(project.ID, "copy2/a.js", "same")))
	require.NoError(t, storage.UpsertFile(ctx, newFile(project.ID, "b.js", "different")))
	require.NoError(t, storage.UpsertFile(ctx, newFile(other.ID, "a.js", "same")))

	n, err := storage.CountDuplicateFiles(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = storage.CountDuplicateFiles(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestListFilesUnknownProject(t *testing.T) {
	storage := setupTestDB(t)
	files, err := storage.ListFiles(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestUpsertFileRequiresProject(t *testing.T) {
	storage := setupTestDB(t)
	err := storage.UpsertFile(context.Background(), newFile(uuid.NewString(), "a.js", "x"))
	assert.Error(t, err) // foreign key violation
}

func TestFilesIsolatedPerProject(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	p1 := createTestProject(t, storage, "one")
	p2 := createTestProject(t, storage, "two")

	require.NoError(t, storage.UpsertFile(ctx, newFile(p1.ID, "a.js", "one")))
	require.NoError(t, storage.UpsertFile(ctx, newFile(p2.ID, "a.js", "two")))

	files, err := storage.ListFiles(ctx, p2.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "two", files[0].Content)
}

func TestHistory(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project := createTestProject(t, storage, "demo")

	refs := []types.Reference{{FilePath: "src/a.js", StartLine: 1, EndLine: 4, Snippet: "const a = 1"}}
	for i := 0; i < 12; i++ {
		record := &QARecord{
			ProjectID:  project.ID,
			Question:   fmt.Sprintf("question %d", i),
			Answer:     fmt.Sprintf("answer %d", i),
			References: refs,
		}
		require.NoError(t, storage.SaveQA(ctx, record))
		assert.Greater(t, record.ID, int64(0))
	}

	history, err := storage.ListHistory(ctx, project.ID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "question 11", history[0].Question)
	assert.Equal(t, "question 9", history[2].Question)
	assert.Equal(t, refs, history[0].References)

	removed, err := storage.PruneHistory(ctx, project.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	history, err = storage.ListHistory(ctx, project.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 10)
	assert.Equal(t, "question 2", history[9].Question)
}

func TestSaveQAWithoutReferences(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project := createTestProject(t, storage, "demo")

	require.NoError(t, storage.SaveQA(ctx, &QARecord{ProjectID: project.ID, Question: "q", Answer: "a"}))

	history, err := storage.ListHistory(ctx, project.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].References)
	assert.Empty(t, history[0].References)
}

func TestPruneHistoryOnlyTouchesProject(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	p1 := createTestProject(t, storage, "one")
	p2 := createTestProject(t, storage, "two")

	for _, p := range []*Project{p1, p2} {
		for i := 0; i < 3; i++ {
			require.NoError(t, storage.SaveQA(ctx, &QARecord{ProjectID: p.ID, Question: "q", Answer: "a"}))
		}
	}

	removed, err := storage.PruneHistory(ctx, p1.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	h2, err := storage.ListHistory(ctx, p2.ID, 10)
	require.NoError(t, err)
	assert.Len(t, h2, 3)
}

func TestTransactionCommitAndRollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	project := createTestProject(t, storage, "demo")

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertFile(ctx, newFile(project.ID, "a.js", "a")))
	n, err := tx.CountFiles(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, tx.Commit())

	tx, err = storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertFile(ctx, newFile(project.ID, "b.js", "b")))
	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
	require.NoError(t, tx.Rollback())

	files, err := storage.ListFiles(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.js", files[0].Path)
}

func TestGetStatusAndPing(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, storage.Ping(ctx))

	project := createTestProject(t, storage, "demo")
	require.NoError(t, storage.UpsertFile(ctx, newFile(project.ID, "a.js", "a")))
	require.NoError(t, storage.SaveQA(ctx, &QARecord{ProjectID: project.ID, Question: "q", Answer: "a"}))

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Projects)
	assert.Equal(t, 1, status.Files)
	assert.Equal(t, 1, status.Questions)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, BuildMode, status.BuildMode)
}

func TestPingAfterClose(t *testing.T) {
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, storage.Close())
	assert.Error(t, storage.Ping(context.Background()))
}
