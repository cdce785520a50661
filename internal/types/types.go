package types

import "fmt"

// Severity is a coarse-grained risk level for a finding.
type Severity string

const (
	SevLow  Severity = "low"
	SevMed  Severity = "medium"
	SevHigh Severity = "high"
)

// Kind classifies what sort of secret a finding is believed to be.
type Kind string

const (
	KindCloudKey         Kind = "CloudKey"
	KindAccessToken      Kind = "AccessToken"
	KindPrivateKeyBlock  Kind = "PrivateKeyBlock"
	KindConnectionURI    Kind = "ConnectionURI"
	KindGenericToken     Kind = "GenericToken"
	KindEntropyHeuristic Kind = "EntropyHeuristic"
)

// RuleEntropyHeuristic is the rule ID assigned to findings produced by the
// generic entropy sweep rather than a pattern rule.
const RuleEntropyHeuristic = "entropy_heuristic"

// Finding describes a potential secret detected at a path and byte span,
// including the rule ID that matched, severity, and confidence in [0,1].
// Findings are immutable value records; a scan yields them ordered by
// (path, start offset).
type Finding struct {
	Path       string   `json:"path"`
	Line       int      `json:"line"`
	Column     int      `json:"column,omitempty"`
	Start      int      `json:"start"` // byte offset of the match
	End        int      `json:"end"`   // byte offset one past the match
	Match      string   `json:"match"` // the candidate secret value
	Rule       string   `json:"rule"`
	Kind       Kind     `json:"kind"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	Context    string   `json:"context,omitempty"` // surrounding line for display
}

// SpanKey identifies a finding's location for deduplication: two findings
// with the same key are duplicates and only the higher-confidence one
// survives.
func (f Finding) SpanKey() string {
	return fmt.Sprintf("%s|%d-%d", f.Path, f.Start, f.End)
}
