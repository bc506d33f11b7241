// Package critic audits a generated markdown report against the evidence it
// is allowed to cite. It measures citation coverage sentence by sentence,
// surfaces citations of evidence that does not exist, and rejects
// low-strength evidence anchoring the executive summary.
package critic

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ppiankov/reportgate/internal/model"
)

// Input is everything the critic needs to audit one report
type Input struct {
	ReportMarkdown      string
	EvidenceIDs         []string
	Claims              []model.Claim
	RequiredCoveragePct *float64 // nil uses the configured default
	ExecSummaryHeadings []string // empty uses the configured default
}

// Option customizes a Critic
type Option func(*Critic)

// WithSplitter replaces the sentence splitting strategy
func WithSplitter(s SentenceSplitter) Option {
	return func(c *Critic) {
		if s != nil {
			c.splitter = s
		}
	}
}

// Critic audits reports. It holds no per-call state and is safe for concurrent use.
type Critic struct {
	citation *regexp.Regexp
	required float64
	headings []string
	splitter SentenceSplitter
}

// New creates a critic from configuration
func New(cfg model.CriticConfig, opts ...Option) (*Critic, error) {
	defaults := model.DefaultConfig().Critic

	pattern := cfg.CitationPattern
	if pattern == "" {
		pattern = defaults.CitationPattern
	}
	citation, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile citation pattern: %w", err)
	}

	headings := cfg.ExecSummaryHeadings
	if len(headings) == 0 {
		headings = defaults.ExecSummaryHeadings
	}

	// Zero is an unset threshold. Callers that accept any coverage pass
	// Input.RequiredCoveragePct explicitly.
	required := cfg.RequiredCoveragePct
	if required <= 0 || math.IsNaN(required) {
		required = defaults.RequiredCoveragePct
	}

	c := &Critic{
		citation: citation,
		required: required,
		headings: headings,
		splitter: PunctuationSplitter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var defaultCritic = func() *Critic {
	c, err := New(model.DefaultConfig().Critic)
	if err != nil {
		panic(fmt.Sprintf("critic: default configuration: %v", err))
	}
	return c
}()

// CritiquePostWrite audits a report with the default configuration
func CritiquePostWrite(in Input) model.CritiqueResult {
	return defaultCritic.Critique(in)
}

// Critique audits one report. An empty evidence set makes every citation
// unknown, so the report fails.
func (c *Critic) Critique(in Input) model.CritiqueResult {
	required := c.required
	if in.RequiredCoveragePct != nil {
		required = *in.RequiredCoveragePct
	}
	headings := c.headings
	if len(in.ExecSummaryHeadings) > 0 {
		headings = in.ExecSummaryHeadings
	}

	valid := make(map[string]bool, len(in.EvidenceIDs))
	for _, id := range in.EvidenceIDs {
		if id = strings.TrimSpace(id); id != "" {
			valid[id] = true
		}
	}

	lines := splitLines(in.ReportMarkdown)
	sentences := c.audit(c.sentences(paragraphs(lines)), valid)

	result := model.CritiqueResult{
		RequiredCoveragePct:      required,
		TotalSentences:           len(sentences),
		ClaimCount:               len(in.Claims),
		Sentences:                sentences,
		UncitedSentences:         []model.SentenceAudit{},
		InvalidCitationSentences: []model.SentenceAudit{},
		UnknownEvidenceIDs:       []string{},
	}

	seenUnknown := make(map[string]bool)
	for _, s := range sentences {
		if len(s.ValidCitations) > 0 {
			result.CitedSentences++
		} else {
			result.UncitedSentences = append(result.UncitedSentences, s)
		}
		if len(s.InvalidCitations) > 0 {
			result.InvalidCitationSentences = append(result.InvalidCitationSentences, s)
		}
		for _, id := range s.InvalidCitations {
			if !seenUnknown[id] {
				seenUnknown[id] = true
				result.UnknownEvidenceIDs = append(result.UnknownEvidenceIDs, id)
			}
		}
	}

	result.CoveragePct = coverage(result.CitedSentences, result.TotalSentences)
	result.ExecSummary = c.execSummary(lines, headings, valid, strengthIndex(in.Claims))

	if result.CoveragePct < required {
		result.FailureReasons = append(result.FailureReasons,
			fmt.Sprintf("citation coverage %.1f%% is below the required %.1f%%", result.CoveragePct, required))
	}
	if len(result.UnknownEvidenceIDs) > 0 {
		result.FailureReasons = append(result.FailureReasons,
			"report cites unknown evidence: "+strings.Join(result.UnknownEvidenceIDs, ", "))
	}
	if ids := result.ExecSummary.LowStrengthEvidenceIDs; len(ids) > 0 {
		result.FailureReasons = append(result.FailureReasons,
			"executive summary cites low-strength evidence: "+strings.Join(ids, ", "))
	}
	result.Passed = len(result.FailureReasons) == 0

	return result
}

// sentences splits prose paragraphs and drops fragments that are only list or rule markers
func (c *Critic) sentences(paras []string) []string {
	var out []string
	for _, p := range paras {
		for _, s := range c.splitter.Split(p) {
			s = strings.TrimSpace(s)
			if s == "" || markerOnly.MatchString(s) || strings.HasPrefix(s, "#") {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

// audit classifies the citations of each sentence. Indexes are 1-based.
func (c *Critic) audit(sentences []string, valid map[string]bool) []model.SentenceAudit {
	audits := make([]model.SentenceAudit, 0, len(sentences))
	for i, text := range sentences {
		a := model.SentenceAudit{
			Index:            i + 1,
			Text:             text,
			Citations:        []string{},
			ValidCitations:   []string{},
			InvalidCitations: []string{},
		}

		seen := make(map[string]bool)
		for _, m := range c.citation.FindAllStringSubmatch(text, -1) {
			id := m[0]
			if len(m) > 1 && m[1] != "" {
				id = m[1]
			}
			if seen[id] {
				continue
			}
			seen[id] = true

			a.Citations = append(a.Citations, id)
			if valid[id] {
				a.ValidCitations = append(a.ValidCitations, id)
			} else {
				a.InvalidCitations = append(a.InvalidCitations, id)
			}
		}
		audits = append(audits, a)
	}
	return audits
}

// execSummary audits the executive summary section and collects the
// low-strength evidence it validly cites
func (c *Critic) execSummary(lines, headings []string, valid map[string]bool, strengths map[string]int) model.ExecSummaryAudit {
	out := model.ExecSummaryAudit{
		Sentences:              []model.SentenceAudit{},
		LowStrengthEvidenceIDs: []string{},
	}

	heading, body, found := section(lines, headings)
	if !found {
		return out
	}

	paras := paragraphs(body)
	out.Found = true
	out.Heading = heading
	out.Text = strings.Join(paras, "\n\n")
	out.Sentences = c.audit(c.sentences(paras), valid)

	seen := make(map[string]bool)
	for _, s := range out.Sentences {
		for _, id := range s.ValidCitations {
			if strengths[id] == model.StrengthLow.Rank() && !seen[id] {
				seen[id] = true
				out.LowStrengthEvidenceIDs = append(out.LowStrengthEvidenceIDs, id)
			}
		}
	}
	return out
}

// strengthIndex maps each evidence ID to the best strength rank of any claim citing it
func strengthIndex(claims []model.Claim) map[string]int {
	index := make(map[string]int)
	for _, claim := range claims {
		rank := claim.Strength.Rank()
		for _, id := range claim.EvidenceIDs {
			id = strings.TrimSpace(id)
			if rank > index[id] {
				index[id] = rank
			}
		}
	}
	return index
}

// coverage is the share of cited sentences rounded to one decimal. No sentences is full coverage.
func coverage(cited, total int) float64 {
	if total == 0 {
		return 100
	}
	return math.Round(float64(cited)/float64(total)*1000) / 10
}
