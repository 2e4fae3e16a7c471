package types

// Outcome tags how a search finished. Degenerate outcomes are valid results,
// not errors.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeNoKeywords Outcome = "no_keywords"
	OutcomeNoFiles    Outcome = "no_files"
	OutcomeNoMatches  Outcome = "no_matches"
)

// Validate checks the outcome is one of the known values
func (o Outcome) Validate() error {
	switch o {
	case OutcomeOK, OutcomeNoKeywords, OutcomeNoFiles, OutcomeNoMatches:
		return nil
	default:
		return ErrUnknownOutcome
	}
}

// Truncation reports where resource bounds cut the input or output
type Truncation struct {
	FilesSkipped   int  `json:"filesSkipped"`   // files beyond the scan limit
	FilesClipped   int  `json:"filesClipped"`   // files whose content was cut to the byte limit
	ContextClipped bool `json:"contextClipped"` // snippet blocks cut or left out to respect the context cap
}

// Any reports whether any bound was hit
func (t Truncation) Any() bool {
	return t.FilesSkipped > 0 || t.FilesClipped > 0 || t.ContextClipped
}

// SearchResult is the output of one relevance search
type SearchResult struct {
	Snippets      []Reference `json:"snippets"`
	ContextForLLM string      `json:"contextForLlm"`
	Keywords      []string    `json:"keywords"`
	Outcome       Outcome     `json:"outcome"`
	Truncation    Truncation  `json:"truncation"`
}
