package types

import "fmt"

// Snippet is a context-padded excerpt of one file. Lines are 1-based and inclusive.
type Snippet struct {
	StartLine int
	EndLine   int
	Content   string
}

// Validate checks the line range of the snippet
func (s *Snippet) Validate() error {
	if s.StartLine < 1 || s.EndLine < 1 {
		return fmt.Errorf("%w: line numbers must be positive", ErrInvalidLineRange)
	}
	if s.StartLine > s.EndLine {
		return fmt.Errorf("%w: start line %d after end line %d", ErrInvalidLineRange, s.StartLine, s.EndLine)
	}
	return nil
}

// Reference is the externally visible citation returned to callers and
// persisted with question history.
type Reference struct {
	FilePath  string `json:"filePath"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Snippet   string `json:"snippet"`
}

// Validate checks the reference has a path and a sane line range
func (r *Reference) Validate() error {
	if r.FilePath == "" {
		return ErrMissingFilePath
	}
	s := Snippet{StartLine: r.StartLine, EndLine: r.EndLine}
	return s.Validate()
}
