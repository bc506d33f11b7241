package critic

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/reportgate/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func TestCritique_Coverage(t *testing.T) {
	result := CritiquePostWrite(Input{
		ReportMarkdown: "Intäkterna ökade med 4 % [E-001]. Kostnaderna låg still.",
		EvidenceIDs:    []string{"E-001"},
	})

	assert.Equal(t, 50.0, result.CoveragePct)
	assert.Equal(t, 2, result.TotalSentences)
	assert.Equal(t, 1, result.CitedSentences)
	assert.Equal(t, 95.0, result.RequiredCoveragePct)
	assert.False(t, result.Passed)
	require.Len(t, result.UncitedSentences, 1)
	assert.Equal(t, 2, result.UncitedSentences[0].Index)
	require.Len(t, result.FailureReasons, 1)
	assert.Contains(t, result.FailureReasons[0], "50.0%")
}

func TestCritique_CoverageRounding(t *testing.T) {
	result := CritiquePostWrite(Input{
		ReportMarkdown:      "Ett [E-001]. Två [E-001]. Tre.",
		EvidenceIDs:         []string{"E-001"},
		RequiredCoveragePct: floatPtr(60),
	})

	assert.Equal(t, 66.7, result.CoveragePct)
	assert.Equal(t, 60.0, result.RequiredCoveragePct)
	assert.True(t, result.Passed)
}

func TestCritique_UnknownEvidence(t *testing.T) {
	result := CritiquePostWrite(Input{
		ReportMarkdown: "Siffran är bekräftad [E-001][E-999]. Även här [E-999]. Och här [E-998].",
		EvidenceIDs:    []string{"E-001"},
	})

	assert.Equal(t, 33.3, result.CoveragePct)
	assert.Equal(t, []string{"E-999", "E-998"}, result.UnknownEvidenceIDs)
	assert.False(t, result.Passed)
	assert.Len(t, result.InvalidCitationSentences, 3)

	first := result.Sentences[0]
	assert.Equal(t, []string{"E-001", "E-999"}, first.Citations)
	assert.Equal(t, []string{"E-001"}, first.ValidCitations)
	assert.Equal(t, []string{"E-999"}, first.InvalidCitations)
}

func TestCritique_EmptyEvidenceSetFailsClosed(t *testing.T) {
	result := CritiquePostWrite(Input{ReportMarkdown: "Påstående [E-001]."})

	assert.Equal(t, 0.0, result.CoveragePct)
	assert.Equal(t, []string{"E-001"}, result.UnknownEvidenceIDs)
	assert.False(t, result.Passed)
}

func TestCritique_EmptyReportPasses(t *testing.T) {
	result := CritiquePostWrite(Input{
		ReportMarkdown: "# Rubrik\n\n| a | b |\n\n```\nkod.\n```\n",
		EvidenceIDs:    []string{"E-001"},
	})

	assert.Equal(t, 0, result.TotalSentences)
	assert.Equal(t, 100.0, result.CoveragePct)
	assert.True(t, result.Passed)
	assert.NotNil(t, result.Sentences)
	assert.NotNil(t, result.UnknownEvidenceIDs)
	assert.False(t, result.ExecSummary.Found)
}

func TestCritique_ExecSummaryLowStrength(t *testing.T) {
	md := strings.Join([]string{
		"# Årsrapport",
		"",
		"## Executive Summary",
		"",
		"Verksamheten växte kraftigt [E-007].",
		"Kostnaderna var stabila [E-001].",
		"",
		"## Analys",
		"",
		"Svagt underlag används här [E-007].",
	}, "\n")

	claims := []model.Claim{
		{ID: "C-1", Strength: model.StrengthLow, EvidenceIDs: []string{"E-007"}},
		{ID: "C-2", Strength: model.StrengthLow, EvidenceIDs: []string{"E-001"}},
		{ID: "C-3", Strength: model.StrengthHigh, EvidenceIDs: []string{"E-001"}},
	}

	result := CritiquePostWrite(Input{
		ReportMarkdown: md,
		EvidenceIDs:    []string{"E-001", "E-007"},
		Claims:         claims,
	})

	assert.Equal(t, 100.0, result.CoveragePct)
	assert.Equal(t, 3, result.ClaimCount)
	assert.True(t, result.ExecSummary.Found)
	assert.Equal(t, "Executive Summary", result.ExecSummary.Heading)
	assert.Len(t, result.ExecSummary.Sentences, 2)
	assert.Equal(t, []string{"E-007"}, result.ExecSummary.LowStrengthEvidenceIDs)
	assert.False(t, result.Passed)
	require.Len(t, result.FailureReasons, 1)
	assert.Contains(t, result.FailureReasons[0], "E-007")
}

func TestCritique_LowStrengthOutsideSummaryPasses(t *testing.T) {
	md := "## Sammanfattning\n\nStarkt stöd [E-001].\n\n## Detaljer\n\nSvagt stöd [E-007]."

	result := CritiquePostWrite(Input{
		ReportMarkdown: md,
		EvidenceIDs:    []string{"E-001", "E-007"},
		Claims:         []model.Claim{{ID: "C-1", Strength: "LOW", EvidenceIDs: []string{"E-007"}}},
	})

	assert.Empty(t, result.ExecSummary.LowStrengthEvidenceIDs)
	assert.True(t, result.Passed)
}

func TestCritique_CustomExecSummaryHeadings(t *testing.T) {
	md := "## Key Findings\n\nWeak [E-002].\n"

	result := CritiquePostWrite(Input{
		ReportMarkdown:      md,
		EvidenceIDs:         []string{"E-002"},
		Claims:              []model.Claim{{ID: "C-1", Strength: model.StrengthLow, EvidenceIDs: []string{"E-002"}}},
		ExecSummaryHeadings: []string{"key findings"},
	})

	assert.True(t, result.ExecSummary.Found)
	assert.Equal(t, []string{"E-002"}, result.ExecSummary.LowStrengthEvidenceIDs)
}

type lineSplitter struct{}

func (lineSplitter) Split(text string) []string {
	return []string{text}
}

func TestNew_WithSplitter(t *testing.T) {
	c, err := New(model.DefaultConfig().Critic, WithSplitter(lineSplitter{}))
	require.NoError(t, err)

	result := c.Critique(Input{
		ReportMarkdown: "Ett. Två. Tre [E-001].",
		EvidenceIDs:    []string{"E-001"},
	})
	assert.Equal(t, 1, result.TotalSentences)
	assert.Equal(t, 100.0, result.CoveragePct)
}

func TestNew_InvalidCitationPattern(t *testing.T) {
	cfg := model.DefaultConfig().Critic
	cfg.CitationPattern = "[E-"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestCritique_Idempotent(t *testing.T) {
	in := Input{
		ReportMarkdown: "## Executive Summary\n\nA [E-001]. B [E-404].\n\n## Rest\n\nC.",
		EvidenceIDs:    []string{"E-001"},
		Claims:         []model.Claim{{ID: "C-1", Strength: model.StrengthMedium, EvidenceIDs: []string{"E-001"}}},
	}

	first, err := json.Marshal(CritiquePostWrite(in))
	require.NoError(t, err)
	second, err := json.Marshal(CritiquePostWrite(in))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestNew_PartialConfigUsesDefaultCoverage(t *testing.T) {
	c, err := New(model.CriticConfig{})
	require.NoError(t, err)

	result := c.Critique(Input{
		ReportMarkdown: "Intäkterna ökade [E-001]. Kostnaderna låg still.",
		EvidenceIDs:    []string{"E-001"},
	})
	assert.Equal(t, 95.0, result.RequiredCoveragePct)
	assert.False(t, result.Passed)

	explicit := c.Critique(Input{
		ReportMarkdown:      "Intäkterna ökade [E-001]. Kostnaderna låg still.",
		EvidenceIDs:         []string{"E-001"},
		RequiredCoveragePct: floatPtr(0),
	})
	assert.True(t, explicit.Passed)
}
