package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippetValidate(t *testing.T) {
	tests := []struct {
		name    string
		snippet Snippet
		wantErr bool
	}{
		{"single line", Snippet{StartLine: 1, EndLine: 1}, false},
		{"range", Snippet{StartLine: 3, EndLine: 9}, false},
		{"zero start", Snippet{StartLine: 0, EndLine: 2}, true},
		{"inverted", Snippet{StartLine: 5, EndLine: 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snippet.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLineRange)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReferenceValidate(t *testing.T) {
	ref := Reference{StartLine: 1, EndLine: 2}
	assert.ErrorIs(t, ref.Validate(), ErrMissingFilePath)

	ref.FilePath = "src/app.js"
	assert.NoError(t, ref.Validate())
}

func TestOutcomeValidate(t *testing.T) {
	for _, o := range []Outcome{OutcomeOK, OutcomeNoKeywords, OutcomeNoFiles, OutcomeNoMatches} {
		assert.NoError(t, o.Validate())
	}
	assert.ErrorIs(t, Outcome("partial").Validate(), ErrUnknownOutcome)
}

func TestTruncationAny(t *testing.T) {
	assert.False(t, Truncation{}.Any())
	assert.True(t, Truncation{FilesSkipped: 1}.Any())
	assert.True(t, Truncation{FilesClipped: 2}.Any())
	assert.True(t, Truncation{ContextClipped: true}.Any())
}
