package qa

import "errors"

// Validation and lookup errors returned by Ask. The messages are shown to
// users verbatim.
var (
	ErrQuestionRequired = errors.New("projectId and question are required")
	ErrQuestionEmpty    = errors.New("Question cannot be empty")
	ErrInvalidProjectID = errors.New("Invalid projectId")
	ErrProjectNotFound  = errors.New("Project not found.")
	ErrNoFilesUploaded  = errors.New("No files uploaded for this project. Upload a repo or zip first.")
	ErrLLMUnavailable   = errors.New("LLM service unavailable. Check your API key.")
)
