package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/reportgate/internal/gate"
	"github.com/ppiankov/reportgate/internal/model"
)

// execute runs the root command with fresh flag values and an empty home directory
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cfgFile, verbose, logFormat = "", false, "text"
	jsonOut, outputFormat = "", "text"
	noCache, metricsFile = false, ""
	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
	evidenceFile, evidenceIDs, claimsFile, requiredPct, headings = "", nil, "", 0, nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const conflictingTables = `[
	{"evidence_id": "E-001", "doc_id": "arsredovisning", "headers": ["Nyckeltal", "År", "Belopp (MSEK)"], "rows": [["Intäkter", 2023, 45]]},
	{"evidence_id": "E-002", "doc_id": "delarsrapport", "headers": ["Nyckeltal", "År", "Belopp (MSEK)"], "rows": [["Intäkter", 2023, 60]]}
]`

const citedReport = `# Rapport

## Sammanfattning

Intäkterna ökade under året [E-001].

## Analys

Kostnaderna låg still [E-002]. Resultatet förbättrades [E-001][E-002].
`

func TestLintCommand_FailsOnErrors(t *testing.T) {
	dir := t.TempDir()
	tables := writeFile(t, dir, "tables.json",
		`[{"evidence_id": "E-001", "headers": ["Mått", "Utfall"], "rows": [["Nöjdhet", "140%"]]}]`)

	stdout, _, err := execute(t, "lint", tables, "--format", "json")
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateFailed)

	var issues []model.LintIssue
	require.NoError(t, json.Unmarshal([]byte(stdout), &issues))
	require.Len(t, issues, 1)
	assert.Equal(t, model.LintPercentOutOfRange, issues[0].Type)
}

func TestLintCommand_CleanTables(t *testing.T) {
	dir := t.TempDir()
	tables := writeFile(t, dir, "tables.json",
		`[{"evidence_id": "E-001", "headers": ["Mått", "Utfall"], "rows": [["Nöjdhet", "84%"]]}]`)
	out := filepath.Join(dir, "out", "lint.json")

	stdout, _, err := execute(t, "lint", tables, "--json", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Lint: 1 tables, 0 issues")
	assert.FileExists(t, out)
}

func TestKPICommand(t *testing.T) {
	dir := t.TempDir()
	tables := writeFile(t, dir, "tables.json", conflictingTables)

	stdout, _, err := execute(t, "kpi", tables)
	require.NoError(t, err)

	var points []model.KpiPoint
	require.NoError(t, json.Unmarshal([]byte(stdout), &points))
	require.Len(t, points, 2)
	assert.Equal(t, "Intäkter", points[0].Label)
	assert.Equal(t, "MSEK", points[0].Unit)
	require.NotNil(t, points[0].Year)
	assert.Equal(t, 2023, *points[0].Year)
}

func TestConflictsCommand(t *testing.T) {
	dir := t.TempDir()
	tables := writeFile(t, dir, "tables.json", conflictingTables)

	stdout, _, err := execute(t, "conflicts", tables, "--format", "json")
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateFailed)

	var conflicts []model.ConflictIssue
	require.NoError(t, json.Unmarshal([]byte(stdout), &conflicts))
	require.Len(t, conflicts, 1)
	assert.Equal(t, model.SeverityError, conflicts[0].Severity)
	assert.Equal(t, "intkter||2023|SEK(base)", conflicts[0].KpiKey)
}

func TestCritiqueCommand(t *testing.T) {
	dir := t.TempDir()
	report := writeFile(t, dir, "report.md", citedReport)
	evidence := writeFile(t, dir, "evidence.txt", "# citable\nE-001\nE-002\n")

	stdout, _, err := execute(t, "critique", report, "--evidence-file", evidence)
	require.NoError(t, err)
	assert.Contains(t, stdout, "coverage 100.0%")
}

func TestCritiqueCommand_UnknownEvidence(t *testing.T) {
	dir := t.TempDir()
	report := writeFile(t, dir, "report.md", "Intäkterna ökade [E-999]. Ingen källa här.\n")
	evidence := writeFile(t, dir, "evidence.json", `["E-001"]`)

	stdout, _, err := execute(t, "critique", report, "--evidence-file", evidence, "--format", "json")
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateFailed)

	var res model.CritiqueResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.False(t, res.Passed)
	assert.Equal(t, []string{"E-999"}, res.UnknownEvidenceIDs)
}

func TestCritiqueCommand_InlineEvidenceAndClaims(t *testing.T) {
	dir := t.TempDir()
	report := writeFile(t, dir, "report.md", citedReport)
	claims := writeFile(t, dir, "claims.yaml", `
claims:
  - id: C-1
    strength: low
    evidence_ids: [E-001]
  - id: C-2
    strength: high
    evidence_ids: [E-002]
`)

	stdout, _, err := execute(t, "critique", report, "--evidence-ids", "E-001,E-002", "--claims", claims, "--format", "json")
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateFailed)

	var res model.CritiqueResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, 100.0, res.CoveragePct)
	assert.Equal(t, 2, res.ClaimCount)
	assert.Equal(t, []string{"E-001"}, res.ExecSummary.LowStrengthEvidenceIDs)
}

func TestCritiqueCommand_RequiresEvidence(t *testing.T) {
	dir := t.TempDir()
	report := writeFile(t, dir, "report.md", citedReport)

	_, _, err := execute(t, "critique", report)
	require.Error(t, err)
	assert.NotErrorIs(t, err, gate.ErrGateFailed)
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.md", citedReport)
	bundle := writeFile(t, dir, "q3.json", `{
		"tables": [
			{"evidence_id": "E-001", "doc_id": "a", "headers": ["Nyckeltal", "År", "Belopp (MSEK)"], "rows": [["Intäkter", 2023, 45]]},
			{"evidence_id": "E-002", "doc_id": "b", "headers": ["Nyckeltal", "År", "Belopp (MSEK)"], "rows": [["Intäkter", 2023, 45]]}
		],
		"report_path": "report.md"
	}`)
	out := filepath.Join(dir, "result.json")
	prom := filepath.Join(dir, "reportgate.prom")

	stdout, _, err := execute(t, "check", bundle, "--no-cache", "--json", out, "--metrics-textfile", prom)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ PASS  q3")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report model.GateReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.Passed)
	assert.Equal(t, "q3", report.BundleID)
	require.NotNil(t, report.PostWrite)
	assert.Equal(t, 100.0, report.PostWrite.CoveragePct)

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "reportgate_gate_checks_total")
}

func TestCheckCommand_GateFailure(t *testing.T) {
	dir := t.TempDir()
	bundle := writeFile(t, dir, "bad.json", `{"tables": `+conflictingTables+`}`)

	stdout, _, err := execute(t, "check", bundle, "--no-cache")
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateFailed)
	assert.Contains(t, stdout, "✗ FAIL  bad")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bundles")
	writeFile(t, in, "good.json",
		`{"tables": [{"evidence_id": "E-001", "headers": ["Mått", "Utfall"], "rows": [["Nöjdhet", "84%"]]}]}`)
	writeFile(t, in, "bad.json",
		`{"tables": [{"evidence_id": "E-002", "headers": ["Mått", "Utfall"], "rows": [["Nöjdhet", "140%"]]}]}`)
	out := filepath.Join(dir, "results")

	_, stderr, err := execute(t, "batch", in, "--no-cache", "--concurrency", "2", "--output-dir", out)
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateFailed)
	assert.Contains(t, stderr, "Passed:    1")
	assert.Contains(t, stderr, "Failed:    1")

	assert.FileExists(t, filepath.Join(out, "good.json"))
	assert.FileExists(t, filepath.Join(out, "bad.json"))

	data, err := os.ReadFile(filepath.Join(out, "batch-summary.json"))
	require.NoError(t, err)
	var entries []batchEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "bad", entries[0].BundleID)
	assert.False(t, entries[0].Passed)
	assert.Equal(t, "good", entries[1].BundleID)
	assert.True(t, entries[1].Passed)
}

func TestConfigShow_EnvOverride(t *testing.T) {
	t.Setenv("REPORTGATE_CRITIC_REQUIRED_COVERAGE_PCT", "50")

	stdout, _, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "required_coverage_pct: 50")
	assert.Contains(t, stdout, "percent_abs_tolerance: 1.5")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	stdout, _, err := execute(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Reportgate Configuration File")
	assert.Contains(t, string(data), "exec_summary_headings:")

	_, _, err = execute(t, "config", "init", "--path", path)
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"q3-bundle", "q3-bundle"},
		{"annual report 2024", "annual-report-2024"},
		{"a/b:c", "a_b_c"},
		{"..", "bundle"},
		{"", "bundle"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
