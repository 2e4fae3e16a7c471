package searcher

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lists.yaml
var defaultListsYAML []byte

// ExclusionRule drops files whose lower-cased path contains any pattern,
// unless the question mentions one of the Unless terms.
type ExclusionRule struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Unless   []string `yaml:"unless"`
}

// RoleBonus rewards a keyword that names the role of the directory holding the file.
type RoleBonus struct {
	Keyword string   `yaml:"keyword"`
	Paths   []string `yaml:"paths"`
	Bonus   int      `yaml:"bonus"`
}

// SyntheticKeyword is appended to the keyword list when the question contains a phrase.
type SyntheticKeyword struct {
	Phrases []string `yaml:"phrases"`
	Keyword string   `yaml:"keyword"`
}

// ManifestRule describes the dependency manifest that earns the tech-stack bonus.
type ManifestRule struct {
	Suffix         string   `yaml:"suffix"`
	DependencyKeys []string `yaml:"dependency_keys"`
}

type listsFile struct {
	TechKeywords      []string           `yaml:"tech_keywords"`
	StopWords         []string           `yaml:"stop_words"`
	DeclarationTokens []string           `yaml:"declaration_tokens"`
	Exclusions        []ExclusionRule    `yaml:"exclusions"`
	RoleBonuses       []RoleBonus        `yaml:"role_bonuses"`
	TechQuestionTerms []string           `yaml:"tech_question_terms"`
	Manifest          ManifestRule       `yaml:"manifest"`
	SyntheticKeywords []SyntheticKeyword `yaml:"synthetic_keywords"`
}

// Lists holds the static term lists and path rules. It is built once and
// never mutated, so one value can be shared by concurrent searches.
type Lists struct {
	techKeywords      []string
	techSet           map[string]struct{}
	stopSet           map[string]struct{}
	declarationTokens []string
	exclusions        []ExclusionRule
	roleBonuses       map[string]RoleBonus
	techQuestionTerms []string
	manifest          ManifestRule
	synthetic         []SyntheticKeyword
}

var (
	defaultListsOnce sync.Once
	defaultLists     *Lists
)

// DefaultLists returns the built-in lists. The embedded data is parsed once.
func DefaultLists() *Lists {
	defaultListsOnce.Do(func() {
		l, err := parseLists(defaultListsYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded lists.yaml is invalid: %v", err))
		}
		defaultLists = l
	})
	return defaultLists
}

// LoadLists parses lists from YAML
func LoadLists(r io.Reader) (*Lists, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read lists: %w", err)
	}
	return parseLists(data)
}

// LoadListsFile parses lists from a YAML file on disk
func LoadListsFile(path string) (*Lists, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lists file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadLists(f)
}

func parseLists(data []byte) (*Lists, error) {
	var raw listsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse lists: %w", err)
	}
	if len(raw.DeclarationTokens) == 0 {
		return nil, fmt.Errorf("parse lists: declaration_tokens must not be empty")
	}

	l := &Lists{
		techSet:           make(map[string]struct{}, len(raw.TechKeywords)),
		stopSet:           make(map[string]struct{}, len(raw.StopWords)),
		declarationTokens: append([]string(nil), raw.DeclarationTokens...),
		roleBonuses:       make(map[string]RoleBonus, len(raw.RoleBonuses)),
		manifest:          raw.Manifest,
	}

	for _, term := range raw.TechKeywords {
		term = strings.ToLower(term)
		if _, dup := l.techSet[term]; dup {
			continue
		}
		l.techSet[term] = struct{}{}
		l.techKeywords = append(l.techKeywords, term)
	}
	for _, w := range raw.StopWords {
		l.stopSet[strings.ToLower(w)] = struct{}{}
	}
	for _, rule := range raw.Exclusions {
		l.exclusions = append(l.exclusions, ExclusionRule{
			Name:     rule.Name,
			Patterns: lowerAll(rule.Patterns),
			Unless:   lowerAll(rule.Unless),
		})
	}
	for _, rb := range raw.RoleBonuses {
		if rb.Bonus < 0 {
			return nil, fmt.Errorf("parse lists: negative bonus for role %q", rb.Keyword)
		}
		rb.Paths = lowerAll(rb.Paths)
		l.roleBonuses[rb.Keyword] = rb
	}
	l.techQuestionTerms = lowerAll(raw.TechQuestionTerms)
	for _, sk := range raw.SyntheticKeywords {
		l.synthetic = append(l.synthetic, SyntheticKeyword{
			Phrases: lowerAll(sk.Phrases),
			Keyword: strings.ToLower(sk.Keyword),
		})
	}
	l.manifest.Suffix = strings.ToLower(l.manifest.Suffix)

	return l, nil
}

// IsTechKeyword reports whether term is on the technology list
func (l *Lists) IsTechKeyword(term string) bool {
	_, ok := l.techSet[term]
	return ok
}

// IsStopWord reports whether term is on the stop-word list
func (l *Lists) IsStopWord(term string) bool {
	_, ok := l.stopSet[term]
	return ok
}

// TechKeywords returns a copy of the technology list in file order
func (l *Lists) TechKeywords() []string {
	return append([]string(nil), l.techKeywords...)
}

// Exclusions returns a copy of the ordered exclusion rules
func (l *Lists) Exclusions() []ExclusionRule {
	return append([]ExclusionRule(nil), l.exclusions...)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
