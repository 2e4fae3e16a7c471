package searcher

import (
	"errors"
	"fmt"
)

// Default tuning values
const (
	DefaultTopK                 = 5
	DefaultMinRelevanceScore    = 10
	DefaultContextLines         = 3
	DefaultKeywordMinLength     = 3
	DefaultDeclarationScanLines = 30

	DefaultMaxFiles        = 5000
	DefaultMaxFileBytes    = 1024 * 1024
	DefaultMaxContextBytes = 64 * 1024
)

// Fixed messages placed in ContextForLLM for degenerate searches
const (
	MsgNoKeywords      = "Please ask a more specific question."
	MsgNoFiles         = "No files found in this project."
	MsgNoMatchesPrefix = "No files found containing: "
)

// Weights are the additive score contributions
type Weights struct {
	Occurrence      int // per whole-word occurrence of a keyword
	Declaration     int // keyword on an early declaration line
	Filename        int // keyword inside the base name
	PackageManifest int // dependency manifest on a tech-stack question
	TechTerm        int // per distinct technology term in content on a tech-stack question
}

// DefaultWeights returns the standard scoring weights
func DefaultWeights() Weights {
	return Weights{
		Occurrence:      20,
		Declaration:     30,
		Filename:        50,
		PackageManifest: 200,
		TechTerm:        30,
	}
}

// Config controls keyword extraction, scoring and output bounds
type Config struct {
	TopK                 int
	MinRelevanceScore    int
	ContextLines         int
	KeywordMinLength     int
	DeclarationScanLines int
	Weights              Weights

	MaxFiles        int // files scanned per query
	MaxFileBytes    int // content bytes scanned per file
	MaxContextBytes int // bytes in the assembled context block

	Lists *Lists
}

// DefaultConfig returns the standard configuration with the built-in lists
func DefaultConfig() Config {
	return Config{
		TopK:                 DefaultTopK,
		MinRelevanceScore:    DefaultMinRelevanceScore,
		ContextLines:         DefaultContextLines,
		KeywordMinLength:     DefaultKeywordMinLength,
		DeclarationScanLines: DefaultDeclarationScanLines,
		Weights:              DefaultWeights(),
		MaxFiles:             DefaultMaxFiles,
		MaxFileBytes:         DefaultMaxFileBytes,
		MaxContextBytes:      DefaultMaxContextBytes,
		Lists:                DefaultLists(),
	}
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	var errs []error
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("top_k must be >= 1, got %d", c.TopK))
	}
	if c.MinRelevanceScore < 0 {
		errs = append(errs, fmt.Errorf("min_relevance_score must be >= 0, got %d", c.MinRelevanceScore))
	}
	if c.ContextLines < 0 {
		errs = append(errs, fmt.Errorf("context_lines must be >= 0, got %d", c.ContextLines))
	}
	if c.KeywordMinLength < 1 {
		errs = append(errs, fmt.Errorf("keyword_min_length must be >= 1, got %d", c.KeywordMinLength))
	}
	if c.DeclarationScanLines < 0 {
		errs = append(errs, fmt.Errorf("declaration_scan_lines must be >= 0, got %d", c.DeclarationScanLines))
	}
	if c.MaxFiles < 1 || c.MaxFileBytes < 1 || c.MaxContextBytes < 1 {
		errs = append(errs, errors.New("max_files, max_file_bytes and max_context_bytes must be positive"))
	}
	w := c.Weights
	if w.Occurrence < 0 || w.Declaration < 0 || w.Filename < 0 || w.PackageManifest < 0 || w.TechTerm < 0 {
		errs = append(errs, fmt.Errorf("weights must not be negative, got %+v", w))
	}
	if c.Lists == nil {
		errs = append(errs, errors.New("lists are required"))
	}
	return errors.Join(errs...)
}
