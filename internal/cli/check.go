package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reportgate/internal/gate"
	"github.com/ppiankov/reportgate/internal/model"
)

var (
	noCache      bool
	metricsFile  string
	checkTimeout time.Duration
)

// checkCmd runs the whole gate over one bundle
var checkCmd = &cobra.Command{
	Use:   "check <bundle>",
	Short: "Run every validator over a report bundle",
	Long: `Check runs the gate over one bundle file (JSON or YAML):
1. Pre-write: lint the evidence tables and scan KPIs for conflicts
2. Post-write: when the bundle carries a report, audit its citations

Results are cached by content, so re-checking an unchanged bundle with
an unchanged configuration is instant.

Example:
  reportgate check bundle.yaml
  reportgate check bundle.json --json result.json
  reportgate check bundle.yaml --no-cache --metrics-textfile /var/lib/node_exporter/reportgate.prom`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addOutputFlags(checkCmd)
	addGateFlags(checkCmd)
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", time.Minute, "timeout for the check")
}

// addGateFlags registers the flags shared by check and batch
func addGateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().StringVar(&metricsFile, "metrics-textfile", "", "write Prometheus metrics to this textfile")
}

// applyGateFlags folds the gate flags into the loaded configuration
func applyGateFlags(cfg *model.Config) {
	if noCache {
		cfg.Cache.Enabled = false
	}
	if metricsFile != "" {
		cfg.Metrics.Textfile = metricsFile
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	applyGateFlags(cfg)

	p, err := gate.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	bundle, err := gate.LoadBundle(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	report, err := p.Check(ctx, bundle)
	if err != nil {
		return fmt.Errorf("check %s: %w", bundle.ID, err)
	}

	renderer := gate.NewRenderer(cfg.Output.Verbose)
	if err := emit(cmd, renderer, report, func(w io.Writer) {
		renderer.RenderSummary(w, report)
	}); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := p.Metrics().WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
	}

	if !report.Passed {
		return fmt.Errorf("%w: %s", gate.ErrGateFailed, bundle.ID)
	}
	return nil
}
