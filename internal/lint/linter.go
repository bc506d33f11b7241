// Package lint checks numeric table evidence in isolation: percentages in
// range, non-negative currency amounts, and distribution rows that add up
// to roughly 100%.
//
// The linter is pure: it performs no I/O, never mutates its input, and
// returns the same issues for the same tables and configuration.
package lint

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ppiankov/reportgate/internal/model"
	"github.com/ppiankov/reportgate/internal/util"
)

// Linter validates table evidence
type Linter struct {
	percent      *regexp.Regexp
	currency     *regexp.Regexp
	tolerance    float64
	lossKeywords []string
	hints        []string
}

// New creates a linter from configuration.
// Invalid patterns are reported here so that Lint itself can never fail.
func New(cfg model.LintConfig) (*Linter, error) {
	percent, err := regexp.Compile(cfg.PercentPattern)
	if err != nil {
		return nil, fmt.Errorf("compile percent pattern: %w", err)
	}

	currency, err := regexp.Compile(cfg.CurrencyPattern)
	if err != nil {
		return nil, fmt.Errorf("compile currency pattern: %w", err)
	}

	tolerance := cfg.PercentSumTolerance
	if tolerance < 0 {
		tolerance = 0
	}

	return &Linter{
		percent:      percent,
		currency:     currency,
		tolerance:    tolerance,
		lossKeywords: lowerAll(cfg.LossKeywords),
		hints:        lowerAll(cfg.DistributionHints),
	}, nil
}

var defaultLinter = func() *Linter {
	l, err := New(model.DefaultConfig().Lint)
	if err != nil {
		panic(fmt.Sprintf("lint: default configuration: %v", err))
	}
	return l
}()

// Lint runs the default linter over the tables
func Lint(tables []model.EvidenceTable) []model.LintIssue {
	return defaultLinter.Lint(tables)
}

// Lint enumerates every finding in the tables.
// Tables without headers or rows are skipped: missing data is not a finding.
func (l *Linter) Lint(tables []model.EvidenceTable) []model.LintIssue {
	issues := []model.LintIssue{}

	for _, table := range tables {
		if len(table.Headers) == 0 || len(table.Rows) == 0 {
			continue
		}

		distribution := l.isDistributionTable(table.Headers)

		for r, row := range table.Rows {
			rowHasLoss := l.mentionsLoss(row)

			var sum float64
			validPercents := 0

			for c, cell := range row {
				if cell.IsNull() {
					continue
				}
				text := cell.String()
				header := table.Header(c)

				if v, ok := l.parsePercent(text); ok {
					if v < 0 || v > 100 {
						issues = append(issues, cellIssue(table, r, c,
							model.LintPercentOutOfRange, model.SeverityError,
							fmt.Sprintf("Percent value %s is outside [0, 100]%s", formatPercent(v), inColumn(header))))
						continue
					}
					sum += v
					validPercents++
					continue
				}

				if !l.isCurrency(text, header) {
					continue
				}
				v, ok := cellValue(cell)
				if !ok || v >= 0 {
					continue
				}

				severity := model.SeverityError
				msg := fmt.Sprintf("Negative currency amount %q%s", text, inColumn(header))
				if rowHasLoss {
					severity = model.SeverityWarning
					msg += " (row describes a loss or deficit)"
				}
				issues = append(issues, cellIssue(table, r, c, model.LintCurrencyNegative, severity, msg))
			}

			// TODO: rows with a single percent cell are never summed, so an incomplete
			// distribution (e.g. one cell of 60%) goes unreported.
			if distribution && validPercents >= 2 && math.Abs(100-sum) > l.tolerance {
				issues = append(issues, rowIssue(table, r,
					model.LintRowPercentSumMismatch, model.SeverityWarning,
					fmt.Sprintf("Row percentages sum to %.2f%% (expected 100%% ± %.2f)", sum, l.tolerance)))
			}
		}
	}

	return issues
}

// parsePercent returns the value of a "<number>%" cell
func (l *Linter) parsePercent(text string) (float64, bool) {
	m := l.percent.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	if len(m) > 1 && m[1] != "" {
		return util.ParseDecimal(m[1])
	}
	return util.ParseNumber(m[0])
}

// isCurrency reports whether a cell or its column header names a currency
func (l *Linter) isCurrency(text, header string) bool {
	return l.currency.MatchString(text) || l.currency.MatchString(header)
}

// isDistributionTable reports whether the headers suggest a share/distribution table
func (l *Linter) isDistributionTable(headers []string) bool {
	joined := strings.ToLower(strings.Join(headers, " "))
	for _, hint := range l.hints {
		if hint != "" && strings.Contains(joined, hint) {
			return true
		}
	}
	return false
}

// mentionsLoss reports whether any cell of the row contains a loss keyword
func (l *Linter) mentionsLoss(row []model.Cell) bool {
	parts := make([]string, 0, len(row))
	for _, cell := range row {
		parts = append(parts, cell.String())
	}
	text := strings.ToLower(strings.Join(parts, " "))

	for _, kw := range l.lossKeywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func cellValue(cell model.Cell) (float64, bool) {
	if cell.IsNumber() {
		return cell.Num, true
	}
	return util.ParseNumber(cell.Text)
}

func cellIssue(t model.EvidenceTable, row, col int, typ model.LintIssueType, sev model.Severity, msg string) model.LintIssue {
	issue := rowIssue(t, row, typ, sev, msg)
	issue.ColIndex = &col
	return issue
}

func rowIssue(t model.EvidenceTable, row int, typ model.LintIssueType, sev model.Severity, msg string) model.LintIssue {
	return model.LintIssue{
		EvidenceID: t.EvidenceID,
		RowIndex:   row,
		Type:       typ,
		Severity:   sev,
		Message:    msg,
		Page:       t.Page,
		TableRef:   t.TableRef,
		SourceLoc:  t.SourceLoc,
	}
}

func inColumn(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	return fmt.Sprintf(" in column %q", header)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
