package kpi

import (
	"regexp"
	"strings"

	"github.com/ppiankov/reportgate/internal/model"
	"github.com/ppiankov/reportgate/internal/util"
)

var bareYear = regexp.MustCompile(`^(?:19|20)\d{2}$`)

// layout is the detected role of each column of one table
type layout struct {
	yearCol   int // -1 when the table has no year column
	actorCol  int // -1 when the table has no actor column
	valueCols []int
	reserved  map[int]bool // year, actor and value columns: never used as row labels
}

// valueDetector proposes value columns for a table. Columns in skip are
// already claimed by another role. An empty result hands over to the next
// detector in the chain.
type valueDetector interface {
	Name() string
	Detect(t model.EvidenceTable, skip map[int]bool) []int
}

// headerTokenDetector picks columns whose header mentions a percent or currency token
type headerTokenDetector struct {
	percentHeader *regexp.Regexp
	currency      *regexp.Regexp
}

func (d headerTokenDetector) Name() string { return "header-token" }

func (d headerTokenDetector) Detect(t model.EvidenceTable, skip map[int]bool) []int {
	var cols []int
	for c, header := range t.Headers {
		if skip[c] {
			continue
		}
		if d.percentHeader.MatchString(header) || d.currency.MatchString(header) {
			cols = append(cols, c)
		}
	}
	return cols
}

// digitSampleDetector picks columns where enough of the first rows contain a digit
type digitSampleDetector struct {
	sampleRows int
	minRatio   float64
}

func (d digitSampleDetector) Name() string { return "digit-sample" }

func (d digitSampleDetector) Detect(t model.EvidenceTable, skip map[int]bool) []int {
	sample := t.Rows
	if d.sampleRows > 0 && len(sample) > d.sampleRows {
		sample = sample[:d.sampleRows]
	}
	if len(sample) == 0 {
		return nil
	}

	var cols []int
	for c := 0; c < columnCount(t); c++ {
		if skip[c] {
			continue
		}
		withDigit, years := 0, 0
		for r := range sample {
			text := t.Cell(r, c).String()
			if !util.HasDigit(text) {
				continue
			}
			withDigit++
			if bareYear.MatchString(strings.TrimSpace(text)) {
				years++
			}
		}
		// A column of bare years is a year column without a year header.
		if withDigit > 0 && years == withDigit {
			continue
		}
		if float64(withDigit)/float64(len(sample)) >= d.minRatio {
			cols = append(cols, c)
		}
	}
	return cols
}

// headerColumn returns the first column whose header matches, or -1
func headerColumn(headers []string, pattern *regexp.Regexp) int {
	for c, header := range headers {
		if pattern.MatchString(header) {
			return c
		}
	}
	return -1
}

// columnCount is the widest of the header row and the data rows
func columnCount(t model.EvidenceTable) int {
	n := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// detectLayout runs the column detectors in priority order
func (n *Normalizer) detectLayout(t model.EvidenceTable) layout {
	l := layout{
		yearCol:  headerColumn(t.Headers, n.yearHeader),
		actorCol: -1,
		reserved: make(map[int]bool),
	}
	if l.yearCol >= 0 {
		l.reserved[l.yearCol] = true
	}

	if actorCol := headerColumn(t.Headers, n.actorHeader); actorCol >= 0 && actorCol != l.yearCol {
		l.actorCol = actorCol
		l.reserved[actorCol] = true
	}

	skip := make(map[int]bool, len(l.reserved))
	for c := range l.reserved {
		skip[c] = true
	}

	for _, detector := range n.detectors {
		if cols := detector.Detect(t, skip); len(cols) > 0 {
			l.valueCols = cols
			break
		}
	}
	for _, c := range l.valueCols {
		l.reserved[c] = true
	}

	return l
}
