// Package kpi turns heterogeneous evidence tables into canonical KPI
// observations and detects contradictory values for the same KPI reported
// by different documents.
package kpi

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/reportgate/internal/model"
	"github.com/ppiankov/reportgate/internal/util"
)

// UnitValue is the unit given to numeric cells with no resolvable unit
const UnitValue = "value"

// Normalizer converts tables to KPI points
type Normalizer struct {
	units              *UnitTable
	yearHeader         *regexp.Regexp
	actorHeader        *regexp.Regexp
	percentCell        *regexp.Regexp
	percentHeader      *regexp.Regexp
	currency           *regexp.Regexp
	preferColumnLabels bool
	detectors          []valueDetector
}

// NewNormalizer creates a normalizer from configuration
func NewNormalizer(cfg model.KPIConfig) (*Normalizer, error) {
	n := &Normalizer{
		units:              NewUnitTable(cfg.Units),
		preferColumnLabels: cfg.PreferColumnLabels,
	}

	var err error
	if n.yearHeader, err = compilePattern("year header", cfg.YearHeaderPattern); err != nil {
		return nil, err
	}
	if n.actorHeader, err = compilePattern("actor header", cfg.ActorHeaderPattern); err != nil {
		return nil, err
	}
	if n.percentCell, err = compilePattern("percent", cfg.PercentPattern); err != nil {
		return nil, err
	}
	if n.percentHeader, err = compilePattern("percent header", cfg.PercentHeaderPattern); err != nil {
		return nil, err
	}
	if n.currency, err = compilePattern("currency", cfg.CurrencyPattern); err != nil {
		return nil, err
	}

	ratio := cfg.DigitColumnRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	n.detectors = []valueDetector{
		headerTokenDetector{percentHeader: n.percentHeader, currency: n.currency},
		digitSampleDetector{sampleRows: cfg.SampleRows, minRatio: ratio},
	}

	return n, nil
}

var defaultNormalizer = func() *Normalizer {
	n, err := NewNormalizer(model.DefaultConfig().KPI)
	if err != nil {
		panic(fmt.Sprintf("kpi: default configuration: %v", err))
	}
	return n
}()

// TablesToKpiPoints normalizes tables with the default configuration
func TablesToKpiPoints(tables []model.EvidenceTable) []model.KpiPoint {
	return defaultNormalizer.Points(tables)
}

// Points yields one KPI point per (row, value column) pair that holds a number
func (n *Normalizer) Points(tables []model.EvidenceTable) []model.KpiPoint {
	points := []model.KpiPoint{}

	for _, table := range tables {
		if len(table.Rows) == 0 {
			continue
		}

		l := n.detectLayout(table)
		if len(l.valueCols) == 0 {
			continue
		}

		for r, row := range table.Rows {
			rowLabel := n.rowLabel(row, l)
			actor := n.rowActor(row, l, table.Actor)

			for _, c := range l.valueCols {
				cell := table.Cell(r, c)
				if cell.IsNull() {
					continue
				}

				header := strings.TrimSpace(table.Header(c))
				value, unit, ok := n.readValue(cell, header)
				if !ok {
					continue
				}

				label := rowLabel
				if n.preferColumnLabels || label == "" {
					label = header
				}
				if label == "" {
					continue
				}

				points = append(points, model.KpiPoint{
					Label:      label,
					Unit:       unit,
					Value:      value,
					Year:       n.rowYear(row, l, header),
					Actor:      actor,
					EvidenceID: table.EvidenceID,
					DocID:      table.DocID,
					SourceLoc:  table.SourceLoc,
					RowIndex:   r,
					ColIndex:   c,
				})
			}
		}
	}

	return points
}

// readValue parses a value cell and resolves its unit
func (n *Normalizer) readValue(cell model.Cell, header string) (float64, string, bool) {
	text := cell.String()

	if m := n.percentCell.FindStringSubmatch(text); m != nil {
		if v, ok := percentValue(m); ok {
			return v, n.units.PercentUnit(), true
		}
	}

	var value float64
	if cell.IsNumber() {
		value = cell.Num
	} else {
		v, ok := util.ParseNumber(text)
		if !ok {
			return 0, "", false
		}
		value = v
	}

	if token := n.currencyToken(text); token != "" {
		return value, n.units.Canonical(token), true
	}
	if n.percentHeader.MatchString(header) {
		return value, n.units.PercentUnit(), true
	}
	if token := n.currencyToken(header); token != "" {
		return value, n.units.Canonical(token), true
	}
	return value, UnitValue, true
}

func (n *Normalizer) currencyToken(text string) string {
	m := n.currency.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(m) > 1 && m[1] != "" {
		return m[1]
	}
	return m[0]
}

// rowLabel is the first free cell that is not a bare number or percentage
func (n *Normalizer) rowLabel(row []model.Cell, l layout) string {
	for c, cell := range row {
		if l.reserved[c] || cell.IsNull() || cell.IsNumber() {
			continue
		}
		text := strings.TrimSpace(cell.Text)
		if text == "" || util.IsBareNumber(text) {
			continue
		}
		return text
	}
	return ""
}

func (n *Normalizer) rowActor(row []model.Cell, l layout, tableActor string) string {
	if l.actorCol >= 0 && l.actorCol < len(row) {
		if actor := strings.TrimSpace(row[l.actorCol].String()); actor != "" {
			return actor
		}
	}
	return strings.TrimSpace(tableActor)
}

// rowYear resolves the year of an observation: the year column first, then a
// year in the value column's header, then any non-value cell of the row.
func (n *Normalizer) rowYear(row []model.Cell, l layout, valueHeader string) *int {
	if l.yearCol >= 0 && l.yearCol < len(row) {
		if year, ok := util.FindYear(row[l.yearCol].String()); ok {
			return &year
		}
	}
	if year, ok := util.FindYear(valueHeader); ok {
		return &year
	}
	for c, cell := range row {
		if c == l.yearCol || isValueCol(l, c) {
			continue
		}
		if year, ok := util.FindYear(cell.String()); ok {
			return &year
		}
	}
	return nil
}

func isValueCol(l layout, c int) bool {
	for _, vc := range l.valueCols {
		if vc == c {
			return true
		}
	}
	return false
}

// compilePattern compiles a configured pattern. An empty pattern never matches.
func compilePattern(name, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		expr = `$.^`
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile %s pattern: %w", name, err)
	}
	return re, nil
}

func percentValue(m []string) (float64, bool) {
	if len(m) > 1 && m[1] != "" {
		return util.ParseDecimal(m[1])
	}
	return util.ParseNumber(m[0])
}
