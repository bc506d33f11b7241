package gate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/reportgate/internal/model"
)

// Renderer writes gate results as JSON files and human-readable summaries
type Renderer struct {
	verbose bool
}

// NewRenderer creates a renderer. Verbose summaries also list every sentence
// audit instead of only the problem sentences.
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// RenderJSON writes v as indented JSON, creating parent directories as needed
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

// WriteJSON encodes v as indented JSON to w
func (r *Renderer) WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderSummary prints a pass/fail banner followed by every finding with its location
func (r *Renderer) RenderSummary(w io.Writer, report *model.GateReport) {
	verdict := "✓ PASS"
	if !report.Passed {
		verdict = "✗ FAIL"
	}
	cached := ""
	if report.Cached {
		cached = ", cached"
	}
	fmt.Fprintf(w, "%s  %s  (run %s%s)\n", verdict, report.BundleID, report.RunID, cached)

	if report.PreWrite != nil {
		r.RenderPreWrite(w, *report.PreWrite)
	}
	if report.PostWrite != nil {
		r.RenderCritique(w, *report.PostWrite)
	}
}

// RenderPreWrite prints the pre-write verdict and its findings
func (r *Renderer) RenderPreWrite(w io.Writer, res model.PreWriteResult) {
	fmt.Fprintf(w, "\nPre-write: %d errors, %d warnings (%d KPI points)\n",
		res.ErrorCount, res.WarningCount, res.KpiPoints)
	r.RenderLintIssues(w, res.LintIssues)
	r.RenderConflicts(w, res.Conflicts)
}

// RenderLintIssues prints one line per lint issue
func (r *Renderer) RenderLintIssues(w io.Writer, issues []model.LintIssue) {
	for _, issue := range issues {
		loc := location(issue.EvidenceID, issue.Page, issue.TableRef, issue.SourceLoc)
		cell := "row " + strconv.Itoa(issue.RowIndex)
		if issue.ColIndex != nil {
			cell += " col " + strconv.Itoa(*issue.ColIndex)
		}
		fmt.Fprintf(w, "  [%s] %s %s: %s: %s\n", issue.Severity, loc, cell, issue.Type, issue.Message)
	}
}

// RenderConflicts prints each conflict with its contributing points
func (r *Renderer) RenderConflicts(w io.Writer, conflicts []model.ConflictIssue) {
	for _, c := range conflicts {
		fmt.Fprintf(w, "  [%s] conflict %s: %s\n", c.Severity, c.KpiKey, c.Message)
		for _, pt := range c.Points {
			doc := ""
			if pt.DocID != "" {
				doc = " (" + pt.DocID + ")"
			}
			src := ""
			if pt.SourceLoc != "" {
				src = " " + pt.SourceLoc
			}
			fmt.Fprintf(w, "      - %s%s%s row %d col %d: %s %s\n",
				pt.EvidenceID, doc, src, pt.RowIndex, pt.ColIndex,
				strconv.FormatFloat(pt.RawValue, 'f', -1, 64), pt.RawUnit)
		}
	}
}

// RenderCritique prints the post-write verdict and the sentences behind it
func (r *Renderer) RenderCritique(w io.Writer, res model.CritiqueResult) {
	fmt.Fprintf(w, "\nPost-write: coverage %.1f%% (required %.1f%%), %d/%d sentences cited, %d claims\n",
		res.CoveragePct, res.RequiredCoveragePct, res.CitedSentences, res.TotalSentences, res.ClaimCount)

	for _, reason := range res.FailureReasons {
		fmt.Fprintf(w, "  ✗ %s\n", reason)
	}

	if r.verbose {
		for _, s := range res.Sentences {
			fmt.Fprintf(w, "  [%d] %v %s\n", s.Index, s.Citations, quote(s.Text))
		}
	} else {
		for _, s := range res.UncitedSentences {
			fmt.Fprintf(w, "  [uncited] sentence %d: %s\n", s.Index, quote(s.Text))
		}
	}
	for _, s := range res.InvalidCitationSentences {
		fmt.Fprintf(w, "  [unknown] sentence %d cites %s: %s\n",
			s.Index, strings.Join(s.InvalidCitations, ", "), quote(s.Text))
	}

	summary := res.ExecSummary
	switch {
	case !summary.Found:
		fmt.Fprintln(w, "  executive summary: not found")
	case len(summary.LowStrengthEvidenceIDs) > 0:
		fmt.Fprintf(w, "  [low-strength] executive summary %q cites %s\n",
			summary.Heading, strings.Join(summary.LowStrengthEvidenceIDs, ", "))
	default:
		fmt.Fprintf(w, "  executive summary %q: %d sentences, no low-strength evidence\n",
			summary.Heading, len(summary.Sentences))
	}
}

// location renders the provenance of a table finding, e.g. "E-001 p.4 Tabell 2"
func location(evidenceID string, page *int, tableRef, sourceLoc string) string {
	parts := []string{evidenceID}
	if page != nil {
		parts = append(parts, "p."+strconv.Itoa(*page))
	}
	if tableRef != "" {
		parts = append(parts, tableRef)
	}
	if sourceLoc != "" {
		parts = append(parts, sourceLoc)
	}
	return strings.Join(parts, " ")
}

func quote(text string) string {
	const limit = 120
	runes := []rune(text)
	if len(runes) > limit {
		text = string(runes[:limit]) + "…"
	}
	return strconv.Quote(text)
}
