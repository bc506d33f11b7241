package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reportgate/internal/gate"
	"github.com/ppiankov/reportgate/internal/kpi"
	"github.com/ppiankov/reportgate/internal/lint"
	"github.com/ppiankov/reportgate/internal/model"
)

var (
	jsonOut      string
	outputFormat string
)

// lintCmd runs the numeric table linter
var lintCmd = &cobra.Command{
	Use:   "lint <tables>",
	Short: "Lint evidence tables for impossible numbers",
	Long: `Lint scans evidence tables for numeric anomalies:
- Percentages outside 0-100
- Negative currency amounts (a warning when the row mentions a loss)
- Distribution rows whose percentages do not sum to about 100

The tables file is JSON or YAML: a list of tables or an object with a
"tables" field.

Example:
  reportgate lint tables.json
  reportgate lint tables.yaml --format json
  reportgate lint tables.json --json lint.json`,
	Args: cobra.ExactArgs(1),
	RunE: runLint,
}

// kpiCmd prints the normalized KPI points of a set of tables
var kpiCmd = &cobra.Command{
	Use:   "kpi <tables>",
	Short: "Normalize evidence tables into KPI points",
	Long: `KPI detects the year, actor and value columns of each table and emits
one canonical KPI point per numeric value cell, as JSON.

Example:
  reportgate kpi tables.json
  reportgate kpi tables.json --json points.json`,
	Args: cobra.ExactArgs(1),
	RunE: runKPI,
}

// conflictsCmd scans KPIs for cross-document disagreement
var conflictsCmd = &cobra.Command{
	Use:   "conflicts <tables>",
	Short: "Find KPIs reported with contradictory values",
	Long: `Conflicts normalizes the tables into KPI points, groups them by
canonical KPI (label, actor, year, unit) and reports groups whose values
differ beyond tolerance across documents. Currency denominations are
rescaled to a common base before comparing.

Example:
  reportgate conflicts tables.json
  reportgate conflicts tables.json --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runConflicts,
}

func init() {
	for _, cmd := range []*cobra.Command{lintCmd, kpiCmd, conflictsCmd} {
		addOutputFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
}

// addOutputFlags registers the flags shared by every result-producing command
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&jsonOut, "json", "", "also write the result as JSON to this file")
	cmd.Flags().StringVar(&outputFormat, "format", "text", "stdout format (text, json)")
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	tables, err := gate.LoadTables(args[0])
	if err != nil {
		return err
	}
	linter, err := lint.New(cfg.Lint)
	if err != nil {
		return fmt.Errorf("lint config: %w", err)
	}

	issues := linter.Lint(tables)
	logger.Debug("tables linted", "tables", len(tables), "issues", len(issues))

	renderer := gate.NewRenderer(cfg.Output.Verbose)
	err = emit(cmd, renderer, issues, func(w io.Writer) {
		fmt.Fprintf(w, "Lint: %d tables, %d issues\n", len(tables), len(issues))
		renderer.RenderLintIssues(w, issues)
	})
	if err != nil {
		return err
	}

	if n := countLintErrors(issues); n > 0 {
		return fmt.Errorf("%w: %d lint errors", gate.ErrGateFailed, n)
	}
	return nil
}

func runKPI(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	tables, err := gate.LoadTables(args[0])
	if err != nil {
		return err
	}
	normalizer, err := kpi.NewNormalizer(cfg.KPI)
	if err != nil {
		return fmt.Errorf("kpi config: %w", err)
	}

	points := normalizer.Points(tables)
	logger.Debug("tables normalized", "tables", len(tables), "points", len(points))

	renderer := gate.NewRenderer(cfg.Output.Verbose)
	if jsonOut != "" {
		if err := renderer.RenderJSON(points, jsonOut); err != nil {
			return err
		}
	}
	// KPI points have no useful text rendering; stdout is always JSON.
	return renderer.WriteJSON(cmd.OutOrStdout(), points)
}

func runConflicts(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	tables, err := gate.LoadTables(args[0])
	if err != nil {
		return err
	}
	normalizer, err := kpi.NewNormalizer(cfg.KPI)
	if err != nil {
		return fmt.Errorf("kpi config: %w", err)
	}

	scanner, err := kpi.NewScanner(cfg.KPI)
	if err != nil {
		return fmt.Errorf("kpi config: %w", err)
	}

	points := normalizer.Points(tables)
	conflicts := scanner.Detect(points)
	logger.Debug("conflicts scanned", "points", len(points), "conflicts", len(conflicts))

	renderer := gate.NewRenderer(cfg.Output.Verbose)
	err = emit(cmd, renderer, conflicts, func(w io.Writer) {
		fmt.Fprintf(w, "Conflicts: %d KPI points, %d conflicts\n", len(points), len(conflicts))
		renderer.RenderConflicts(w, conflicts)
	})
	if err != nil {
		return err
	}

	errs := 0
	for _, c := range conflicts {
		if c.Severity == model.SeverityError {
			errs++
		}
	}
	if errs > 0 {
		return fmt.Errorf("%w: %d conflicting KPIs", gate.ErrGateFailed, errs)
	}
	return nil
}

// emit writes v to the --json file when set, then prints it to stdout in the
// requested format
func emit(cmd *cobra.Command, renderer *gate.Renderer, v any, text func(io.Writer)) error {
	if jsonOut != "" {
		if err := renderer.RenderJSON(v, jsonOut); err != nil {
			return err
		}
	}

	switch outputFormat {
	case "json":
		return renderer.WriteJSON(cmd.OutOrStdout(), v)
	case "text", "":
		text(cmd.OutOrStdout())
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", outputFormat)
	}
}

func countLintErrors(issues []model.LintIssue) int {
	n := 0
	for _, issue := range issues {
		if issue.Severity == model.SeverityError {
			n++
		}
	}
	return n
}
