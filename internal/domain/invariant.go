package domain

// InvariantType selects the checker for an invariant definition.
type InvariantType string

const (
	InvariantRequiredFile      InvariantType = "required-file"
	InvariantForbiddenFile     InvariantType = "forbidden-file"
	InvariantMutualExclusivity InvariantType = "mutual-exclusivity"
	InvariantForbiddenPattern  InvariantType = "forbidden-pattern"
	InvariantRequiredPattern   InvariantType = "required-pattern"
	InvariantForbiddenImport   InvariantType = "forbidden-import"
	InvariantWUAutomatedTests  InvariantType = "wu-automated-tests"
)

// InvariantDefinition is a declarative rule loaded from the invariants config.
// Only the fields relevant to Type are set.
// Fields are ordered to minimize memory padding.
type InvariantDefinition struct {
	ID           string        `yaml:"id"`
	Type         InvariantType `yaml:"type"`
	Description  string        `yaml:"description,omitempty"`
	Message      string        `yaml:"message,omitempty"`
	Path         string        `yaml:"path,omitempty"`
	Pattern      string        `yaml:"pattern,omitempty"`
	From         string        `yaml:"from,omitempty"`
	Paths        []string      `yaml:"paths,omitempty"`
	Scope        []string      `yaml:"scope,omitempty"`
	CannotImport []string      `yaml:"cannot_import,omitempty"`
}

// PatternMatch locates a regex match.
type PatternMatch struct {
	File string `json:"file"`
	Text string `json:"text"`
	Line int    `json:"line"`
}

// ImportMatch locates a forbidden import.
type ImportMatch struct {
	File   string `json:"file"`
	Module string `json:"module"`
	Line   int    `json:"line"`
}

// Violation is a failed invariant enriched with type-specific diagnostics.
// Fields are ordered to minimize memory padding.
type Violation struct {
	ID            string         `json:"id"`
	Type          InvariantType  `json:"type"`
	Description   string         `json:"description,omitempty"`
	Message       string         `json:"message,omitempty"`
	Path          string         `json:"path,omitempty"`
	ExistingPaths []string       `json:"existingPaths,omitempty"`
	Matches       []PatternMatch `json:"matches,omitempty"`
	Imports       []ImportMatch  `json:"imports,omitempty"`
	WUIDs         []string       `json:"wuIds,omitempty"`
}

// NewViolation starts a violation from its definition.
func NewViolation(def InvariantDefinition) *Violation {
	return &Violation{
		ID:          def.ID,
		Type:        def.Type,
		Description: def.Description,
		Message:     def.Message,
	}
}
