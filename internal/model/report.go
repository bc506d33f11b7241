package model

import "time"

// Severity tells whether a finding blocks acceptance
type Severity string

const (
	SeverityError   Severity = "error"   // Must block acceptance
	SeverityWarning Severity = "warning" // Surfaced to a reviewer, does not fail the gate on its own
)

// LintIssueType classifies a numeric table anomaly
type LintIssueType string

const (
	LintPercentOutOfRange     LintIssueType = "percent_out_of_range"
	LintCurrencyNegative      LintIssueType = "currency_negative"
	LintRowPercentSumMismatch LintIssueType = "row_percent_sum_mismatch"
)

// LintIssue is one anomaly found in one cell or row of one table
type LintIssue struct {
	EvidenceID string        `json:"evidence_id" yaml:"evidence_id"`
	RowIndex   int           `json:"row_index" yaml:"row_index"`
	ColIndex   *int          `json:"col_index" yaml:"col_index"` // nil for row-level issues
	Type       LintIssueType `json:"type" yaml:"type"`
	Severity   Severity      `json:"severity" yaml:"severity"`
	Message    string        `json:"message" yaml:"message"`
	Page       *int          `json:"page,omitempty" yaml:"page,omitempty"`
	TableRef   string        `json:"table_ref,omitempty" yaml:"table_ref,omitempty"`
	SourceLoc  string        `json:"source_loc,omitempty" yaml:"source_loc,omitempty"`
}

// KpiPoint is one canonicalized observation derived from a table cell
type KpiPoint struct {
	Label      string  `json:"label" yaml:"label"`
	Unit       string  `json:"unit" yaml:"unit"` // "%", a currency name, or "value"
	Value      float64 `json:"value" yaml:"value"`
	Year       *int    `json:"year,omitempty" yaml:"year,omitempty"`
	Actor      string  `json:"actor,omitempty" yaml:"actor,omitempty"`
	EvidenceID string  `json:"evidence_id" yaml:"evidence_id"`
	DocID      string  `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`
	SourceLoc  string  `json:"source_loc,omitempty" yaml:"source_loc,omitempty"`
	RowIndex   int     `json:"row_index" yaml:"row_index"`
	ColIndex   int     `json:"col_index" yaml:"col_index"`
}

// ConflictPoint is one contributing observation of a ConflictIssue
type ConflictPoint struct {
	Value      float64 `json:"value" yaml:"value"`         // In canonical unit space
	RawValue   float64 `json:"raw_value" yaml:"raw_value"` // As reported
	RawUnit    string  `json:"raw_unit" yaml:"raw_unit"`
	EvidenceID string  `json:"evidence_id" yaml:"evidence_id"`
	DocID      string  `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`
	SourceLoc  string  `json:"source_loc,omitempty" yaml:"source_loc,omitempty"`
	RowIndex   int     `json:"row_index" yaml:"row_index"`
	ColIndex   int     `json:"col_index" yaml:"col_index"`
}

// ConflictIssue is a group of KPI points for the same canonical KPI that disagree beyond tolerance
type ConflictIssue struct {
	KpiKey      string          `json:"kpi_key" yaml:"kpi_key"`
	Label       string          `json:"label" yaml:"label"`
	Actor       string          `json:"actor,omitempty" yaml:"actor,omitempty"`
	Year        *int            `json:"year,omitempty" yaml:"year,omitempty"`
	Unit        string          `json:"unit" yaml:"unit"`
	Points      []ConflictPoint `json:"points" yaml:"points"`
	DeltaAbs    float64         `json:"delta_abs" yaml:"delta_abs"`
	DeltaRelPct *float64        `json:"delta_rel_pct,omitempty" yaml:"delta_rel_pct,omitempty"`
	Severity    Severity        `json:"severity" yaml:"severity"`
	Message     string          `json:"message" yaml:"message"`
}

// SentenceAudit is one prose sentence of a generated report with its citations classified
type SentenceAudit struct {
	Index            int      `json:"index" yaml:"index"` // 1-based
	Text             string   `json:"text" yaml:"text"`
	Citations        []string `json:"citations" yaml:"citations"`
	ValidCitations   []string `json:"valid_citations" yaml:"valid_citations"`
	InvalidCitations []string `json:"invalid_citations" yaml:"invalid_citations"`
}

// ExecSummaryAudit is the audit of the report's executive summary section
type ExecSummaryAudit struct {
	Found                  bool            `json:"found" yaml:"found"`
	Heading                string          `json:"heading,omitempty" yaml:"heading,omitempty"`
	Text                   string          `json:"text" yaml:"text"`
	Sentences              []SentenceAudit `json:"sentences" yaml:"sentences"`
	LowStrengthEvidenceIDs []string        `json:"low_strength_evidence_ids" yaml:"low_strength_evidence_ids"`
}

// CritiqueResult is the post-write verdict on a generated report
type CritiqueResult struct {
	Passed                   bool             `json:"passed" yaml:"passed"`
	CoveragePct              float64          `json:"coverage_pct" yaml:"coverage_pct"`
	RequiredCoveragePct      float64          `json:"required_coverage_pct" yaml:"required_coverage_pct"`
	TotalSentences           int              `json:"total_sentences" yaml:"total_sentences"`
	CitedSentences           int              `json:"cited_sentences" yaml:"cited_sentences"`
	ClaimCount               int              `json:"claim_count" yaml:"claim_count"`
	Sentences                []SentenceAudit  `json:"sentences" yaml:"sentences"`
	UncitedSentences         []SentenceAudit  `json:"uncited_sentences" yaml:"uncited_sentences"`
	InvalidCitationSentences []SentenceAudit  `json:"invalid_citation_sentences" yaml:"invalid_citation_sentences"`
	UnknownEvidenceIDs       []string         `json:"unknown_evidence_ids" yaml:"unknown_evidence_ids"`
	ExecSummary              ExecSummaryAudit `json:"exec_summary" yaml:"exec_summary"`
	FailureReasons           []string         `json:"failure_reasons,omitempty" yaml:"failure_reasons,omitempty"`
}

// PreWriteResult combines the table linter and the KPI conflict scanner
type PreWriteResult struct {
	Passed       bool            `json:"passed"`
	ErrorCount   int             `json:"error_count"`
	WarningCount int             `json:"warning_count"`
	LintIssues   []LintIssue     `json:"lint_issues"`
	KpiPoints    int             `json:"kpi_points"`
	Conflicts    []ConflictIssue `json:"conflicts"`
}

// GateReport is the outcome of running the gate over one bundle
type GateReport struct {
	RunID     string          `json:"run_id"`
	BundleID  string          `json:"bundle_id"`
	CheckedAt time.Time       `json:"checked_at"`
	Passed    bool            `json:"passed"`
	Cached    bool            `json:"cached"`
	PreWrite  *PreWriteResult `json:"pre_write,omitempty"`
	PostWrite *CritiqueResult `json:"post_write,omitempty"`
}
