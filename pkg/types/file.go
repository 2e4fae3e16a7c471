package types

// FileRecord is a single stored source file of a project.
// Path uses forward slashes and is relative to the project root.
type FileRecord struct {
	Path    string
	Content string
}
