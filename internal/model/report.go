package model

// WarningKind classifies a data-quality warning.
type WarningKind string

const (
	WarnMultipleCandidates  WarningKind = "multiple_candidates"
	WarnDuplicateIDs        WarningKind = "duplicate_ids"
	WarnMissingIDs          WarningKind = "missing_ids"
	WarnZeroMatches         WarningKind = "zero_matches"
	WarnTotalMatches        WarningKind = "total_matches"
	WarnUnknownAttribute    WarningKind = "unknown_attribute"
	WarnConflictingCodes    WarningKind = "conflicting_codes"
	WarnValidatedNotDelib   WarningKind = "validated_not_deliberated"
	WarnDelibNotValidated   WarningKind = "deliberated_not_validated"
	WarnMissingCodeColumn   WarningKind = "missing_code_column"
	WarnMissingAuthorityCol WarningKind = "missing_authority_column"
)

// Warning is a reported, non-fatal data-quality finding.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Source  string      `json:"source,omitempty"`
	Stage   string      `json:"stage"`
	Message string      `json:"message"`
	Samples []string    `json:"samples,omitempty"`
}

// StageCount records how many records entered and left a stage.
type StageCount struct {
	Stage    string   `json:"stage"`
	Category Category `json:"category,omitempty"`
	In       int      `json:"in"`
	Out      int      `json:"out"`
}

// MatchStats is the Validation Matcher's guard against degenerate joins.
type MatchStats struct {
	Category         Category `json:"category,omitempty"`
	Records          int      `json:"records"`
	ReferenceRecords int      `json:"reference_records"`
	Matched          int      `json:"matched"`
	DistinctCodes    int      `json:"distinct_codes"`
}

// AttributeStats reports where each completed attribute's values came from.
type AttributeStats struct {
	Category      Category `json:"category,omitempty"`
	Attribute     string   `json:"attribute"`
	ReferenceName string   `json:"reference_name"`
	FromReference int      `json:"from_reference"`
	FromRecord    int      `json:"from_record"`
	Defaulted     int      `json:"defaulted"`
}

// CrossTab holds the four mutually exclusive validation × deliberation counts.
type CrossTab struct {
	ValidatedDeliberated       int `json:"validated_deliberated"`
	ValidatedNotDeliberated    int `json:"validated_not_deliberated"`
	NotValidatedDeliberated    int `json:"not_validated_deliberated"`
	NotValidatedNotDeliberated int `json:"not_validated_not_deliberated"`
}

// Add counts one record.
func (c *CrossTab) Add(validated, deliberated bool) {
	switch {
	case validated && deliberated:
		c.ValidatedDeliberated++
	case validated:
		c.ValidatedNotDeliberated++
	case deliberated:
		c.NotValidatedDeliberated++
	default:
		c.NotValidatedNotDeliberated++
	}
}

// Merge adds o's counts into c.
func (c *CrossTab) Merge(o CrossTab) {
	c.ValidatedDeliberated += o.ValidatedDeliberated
	c.ValidatedNotDeliberated += o.ValidatedNotDeliberated
	c.NotValidatedDeliberated += o.NotValidatedDeliberated
	c.NotValidatedNotDeliberated += o.NotValidatedNotDeliberated
}

// Total returns the sum of all four cells.
func (c CrossTab) Total() int {
	return c.ValidatedDeliberated + c.ValidatedNotDeliberated +
		c.NotValidatedDeliberated + c.NotValidatedNotDeliberated
}

// Suspicious reports whether either inconsistent combination is non-empty.
func (c CrossTab) Suspicious() bool {
	return c.ValidatedNotDeliberated > 0 || c.NotValidatedDeliberated > 0
}

// CodeOverlap compares the normalized code sets of records and the
// deliberation reference.
type CodeOverlap struct {
	ReferenceCodes int `json:"reference_codes"`
	RecordCodes    int `json:"record_codes"`
	Intersection   int `json:"intersection"`
}

// DeliberationStats summarizes the Deliberation Reconciler.
type DeliberationStats struct {
	Records          int         `json:"records"`
	DirectMatches    int         `json:"direct_matches"`
	SecondaryMatches int         `json:"secondary_matches"`
	CrossTab         CrossTab    `json:"cross_tab"`
	Overlap          CodeOverlap `json:"overlap"`
}

// SourceReport is the audit trail for one source (e.g. "kobo").
type SourceReport struct {
	Source       string            `json:"source"`
	Stages       []StageCount      `json:"stages"`
	Matches      []MatchStats      `json:"matches"`
	Completion   []AttributeStats  `json:"completion"`
	Deliberation DeliberationStats `json:"deliberation"`
	Warnings     []Warning         `json:"warnings,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// Failed reports whether the source aborted with a fatal error.
func (r SourceReport) Failed() bool { return r.Error != "" }

// Report is the audit report of a full pipeline run.
type Report struct {
	Sources     []SourceReport `json:"sources"`
	Records     int            `json:"records"`
	Deliberated int            `json:"deliberated"`
	CrossTab    CrossTab       `json:"cross_tab"`
	Warnings    []Warning      `json:"warnings,omitempty"`
}

// SuspiciousWarnings returns the warnings an operator should review first.
func (r Report) SuspiciousWarnings() []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		switch w.Kind {
		case WarnValidatedNotDelib, WarnDelibNotValidated, WarnZeroMatches, WarnTotalMatches, WarnUnknownAttribute:
			out = append(out, w)
		}
	}
	return out
}
