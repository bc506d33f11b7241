package kpi

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/reportgate/internal/model"
)

// Scanner detects contradictory values for the same canonical KPI
type Scanner struct {
	units           *UnitTable
	minDistinctDocs int
	percentAbsTol   float64
	currencyRelTol  float64
	generalRelTol   float64
	errorMultiplier float64
}

// NewScanner creates a conflict scanner from configuration. Tolerances must
// be finite and non-negative.
func NewScanner(cfg model.KPIConfig) (*Scanner, error) {
	tolerances := []struct {
		name  string
		value float64
	}{
		{"percent_abs_tolerance", cfg.PercentAbsTolerance},
		{"currency_rel_tolerance", cfg.CurrencyRelTolerance},
		{"general_rel_tolerance", cfg.GeneralRelTolerance},
		{"error_multiplier", cfg.ErrorMultiplier},
	}
	for _, tol := range tolerances {
		if math.IsNaN(tol.value) || math.IsInf(tol.value, 0) || tol.value < 0 {
			return nil, fmt.Errorf("invalid %s: %v", tol.name, tol.value)
		}
	}

	s := &Scanner{
		units:           NewUnitTable(cfg.Units),
		minDistinctDocs: cfg.MinDistinctDocs,
		percentAbsTol:   cfg.PercentAbsTolerance,
		currencyRelTol:  cfg.CurrencyRelTolerance,
		generalRelTol:   cfg.GeneralRelTolerance,
		errorMultiplier: cfg.ErrorMultiplier,
	}
	if s.minDistinctDocs < 1 {
		s.minDistinctDocs = 1
	}
	if s.errorMultiplier <= 0 {
		s.errorMultiplier = 2
	}
	return s, nil
}

var defaultScanner = func() *Scanner {
	s, err := NewScanner(model.DefaultConfig().KPI)
	if err != nil {
		panic(fmt.Sprintf("kpi: default configuration: %v", err))
	}
	return s
}()

// DetectConflicts scans points with the default configuration
func DetectConflicts(points []model.KpiPoint) []model.ConflictIssue {
	return defaultScanner.Detect(points)
}

// group collects the points that share one canonical KPI key
type group struct {
	key    string
	class  UnitClass
	unit   string // display unit of the canonical space
	points []model.KpiPoint
	values []float64 // canonical values, parallel to points
}

// Detect emits one ConflictIssue per canonical KPI whose values disagree
// beyond tolerance across enough distinct documents. Groups are reported in
// order of first appearance; points keep their input order.
func (s *Scanner) Detect(points []model.KpiPoint) []model.ConflictIssue {
	issues := []model.ConflictIssue{}

	var order []string
	groups := make(map[string]*group)

	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}

		canonical := s.units.Canonical(p.Unit)
		if canonical == "" {
			canonical = UnitValue
		}
		class := s.units.Classify(canonical)

		value := p.Value
		unitKey, display := canonical, canonical
		switch class {
		case UnitCurrency:
			value = s.units.ToBase(p.Value, canonical)
			unitKey, display = s.units.BaseKey(), s.units.BaseCurrency()
		case UnitPercent:
			unitKey, display = s.units.PercentUnit(), s.units.PercentUnit()
		}

		key := CanonicalKey(p.Label, p.Actor, p.Year, unitKey)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, class: class, unit: display}
			groups[key] = g
			order = append(order, key)
		}
		g.points = append(g.points, p)
		g.values = append(g.values, value)
	}

	for _, key := range order {
		g := groups[key]
		if len(g.points) < 2 {
			continue
		}
		docs := distinctDocs(g.points)
		if docs < s.minDistinctDocs {
			continue
		}
		if issue, ok := s.evaluate(g, docs); ok {
			issues = append(issues, issue)
		}
	}

	return issues
}

// evaluate compares the spread of a group against its unit-appropriate tolerance
func (s *Scanner) evaluate(g *group, docs int) (model.ConflictIssue, bool) {
	lo, hi := g.values[0], g.values[0]
	var sum float64
	for _, v := range g.values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	deltaAbs := hi - lo
	if deltaAbs == 0 {
		return model.ConflictIssue{}, false
	}

	first := g.points[0]
	subject := describe(first)

	var (
		severity    = model.SeverityWarning
		deltaRelPct *float64
		message     string
	)

	switch g.class {
	case UnitPercent:
		tol := s.percentAbsTol
		if deltaAbs <= tol {
			return model.ConflictIssue{}, false
		}
		if deltaAbs > s.errorMultiplier*tol {
			severity = model.SeverityError
		}
		message = fmt.Sprintf("%s: values differ by %.2f pp across %d documents (tolerance %.2f pp)",
			subject, deltaAbs, docs, tol)

	default:
		tol := s.generalRelTol
		if g.class == UnitCurrency {
			tol = s.currencyRelTol
		}

		mean := sum / float64(len(g.values))
		if mean == 0 {
			// Values that cancel out have no meaningful relative delta.
			severity = model.SeverityError
			message = fmt.Sprintf("%s: values differ by %s %s across %d documents (mean is zero)",
				subject, formatAmount(deltaAbs), g.unit, docs)
			break
		}

		rel := math.Abs(deltaAbs/mean) * 100
		if rel <= tol {
			return model.ConflictIssue{}, false
		}
		deltaRelPct = &rel

		// Escalation measures the spread against the largest reported magnitude.
		if spread := deltaAbs / math.Max(math.Abs(lo), math.Abs(hi)) * 100; spread > s.errorMultiplier*tol {
			severity = model.SeverityError
		}
		message = fmt.Sprintf("%s: values differ by %.1f%% (%s %s) across %d documents (tolerance %.1f%%)",
			subject, rel, formatAmount(deltaAbs), g.unit, docs, tol)
	}

	conflictPoints := make([]model.ConflictPoint, len(g.points))
	for i, p := range g.points {
		conflictPoints[i] = model.ConflictPoint{
			Value:      g.values[i],
			RawValue:   p.Value,
			RawUnit:    p.Unit,
			EvidenceID: p.EvidenceID,
			DocID:      p.DocID,
			SourceLoc:  p.SourceLoc,
			RowIndex:   p.RowIndex,
			ColIndex:   p.ColIndex,
		}
	}

	return model.ConflictIssue{
		KpiKey:      g.key,
		Label:       first.Label,
		Actor:       first.Actor,
		Year:        first.Year,
		Unit:        g.unit,
		Points:      conflictPoints,
		DeltaAbs:    deltaAbs,
		DeltaRelPct: deltaRelPct,
		Severity:    severity,
		Message:     message,
	}, true
}

// distinctDocs counts source documents. A point without a document ID counts
// as its own document, identified by its evidence ID.
func distinctDocs(points []model.KpiPoint) int {
	seen := make(map[string]bool, len(points))
	for _, p := range points {
		key := "doc:" + p.DocID
		if p.DocID == "" {
			key = "evidence:" + p.EvidenceID
		}
		seen[key] = true
	}
	return len(seen)
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	slugStrip     = regexp.MustCompile(`[^a-z0-9_%]`)
)

// Slugify lower-cases and trims s, replaces whitespace with "_", and drops
// every character outside [a-z0-9_%].
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRun.ReplaceAllString(s, "_")
	return slugStrip.ReplaceAllString(s, "")
}

// CanonicalKey identifies "the same KPI" across documents
func CanonicalKey(label, actor string, year *int, unitKey string) string {
	yearPart := ""
	if year != nil {
		yearPart = strconv.Itoa(*year)
	}
	return strings.Join([]string{Slugify(label), Slugify(actor), yearPart, unitKey}, "|")
}

func describe(p model.KpiPoint) string {
	parts := []string{p.Label}
	if p.Actor != "" {
		parts = append(parts, p.Actor)
	}
	if p.Year != nil {
		parts = append(parts, strconv.Itoa(*p.Year))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return fmt.Sprintf("%s (%s)", parts[0], strings.Join(parts[1:], ", "))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
