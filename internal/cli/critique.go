package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reportgate/internal/critic"
	"github.com/ppiankov/reportgate/internal/gate"
)

var (
	evidenceFile string
	evidenceIDs  []string
	claimsFile   string
	requiredPct  float64
	headings     []string
)

// critiqueCmd audits a written report
var critiqueCmd = &cobra.Command{
	Use:   "critique <report.md>",
	Short: "Audit a generated report for evidence citations",
	Long: `Critique splits the report prose into sentences and checks each one for
a citation of known evidence:
- Citation coverage must reach the required percentage
- Citations of unknown evidence IDs fail the report
- The executive summary must not rest on low-strength evidence

Evidence IDs are given inline or read from a JSON/YAML list or a text file
with one ID per line. Claims (with their strength) are read from JSON or YAML.

Example:
  reportgate critique report.md --evidence-file evidence.txt
  reportgate critique report.md --evidence-ids E-001,E-002 --claims claims.yaml --coverage 90
  reportgate critique report.md --evidence-file ids.txt --exec-heading "Sammanfattning"`,
	Args: cobra.ExactArgs(1),
	RunE: runCritique,
}

func init() {
	rootCmd.AddCommand(critiqueCmd)
	addOutputFlags(critiqueCmd)

	critiqueCmd.Flags().StringVar(&evidenceFile, "evidence-file", "", "file listing the citable evidence IDs")
	critiqueCmd.Flags().StringSliceVar(&evidenceIDs, "evidence-ids", nil, "citable evidence IDs, comma separated")
	critiqueCmd.Flags().StringVar(&claimsFile, "claims", "", "claims file with evidence strengths")
	critiqueCmd.Flags().Float64Var(&requiredPct, "coverage", 0, "required citation coverage in percent (default from config)")
	critiqueCmd.Flags().StringSliceVar(&headings, "exec-heading", nil, "executive summary heading (repeatable, default from config)")
	critiqueCmd.MarkFlagsOneRequired("evidence-file", "evidence-ids")
}

// citableIDs merges the inline evidence IDs with the evidence file
func citableIDs() ([]string, error) {
	ids := []string{}
	seen := make(map[string]bool)
	add := func(list []string) {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	add(evidenceIDs)
	if evidenceFile != "" {
		fromFile, err := gate.ReadIDList(evidenceFile)
		if err != nil {
			return nil, err
		}
		add(fromFile)
	}
	return ids, nil
}

func runCritique(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	report, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	ids, err := citableIDs()
	if err != nil {
		return err
	}
	in := critic.Input{
		ReportMarkdown:      string(report),
		EvidenceIDs:         ids,
		ExecSummaryHeadings: headings,
	}
	if claimsFile != "" {
		if in.Claims, err = gate.LoadClaims(claimsFile); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("coverage") {
		in.RequiredCoveragePct = &requiredPct
	}

	c, err := critic.New(cfg.Critic)
	if err != nil {
		return fmt.Errorf("critic config: %w", err)
	}
	res := c.Critique(in)
	logger.Debug("report critiqued",
		"sentences", res.TotalSentences,
		"coverage_pct", res.CoveragePct,
		"unknown_evidence", len(res.UnknownEvidenceIDs))

	renderer := gate.NewRenderer(cfg.Output.Verbose)
	err = emit(cmd, renderer, res, func(w io.Writer) {
		renderer.RenderCritique(w, res)
	})
	if err != nil {
		return err
	}

	if !res.Passed {
		return fmt.Errorf("%w: %d failure reasons", gate.ErrGateFailed, len(res.FailureReasons))
	}
	return nil
}
