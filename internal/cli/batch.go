package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/reportgate/internal/gate"
	"github.com/ppiankov/reportgate/internal/worker"
)

var batchTimeout time.Duration

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <list-or-dir>",
	Short: "Check many report bundles in parallel",
	Long: `Batch checks many bundles concurrently:
- Read bundle paths from a list file (one per line) or walk a directory
- Check bundles in parallel with a configurable worker count
- Write one JSON gate report per bundle plus a batch summary

Example:
  reportgate batch bundles/
  reportgate batch bundles.txt --concurrency 8 --output-dir ./results
  reportgate batch bundles/ --timeout 5m --metrics-textfile reportgate.prom`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 0, "number of concurrent workers (default: number of CPUs)")
	batchCmd.Flags().String("output-dir", "", "output directory for gate reports (default: ./reportgate-results)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	addGateFlags(batchCmd)

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("output.dir", batchCmd.Flags().Lookup("output-dir"))
}

// batchEntry is one line of the batch summary file
type batchEntry struct {
	Path     string `json:"path"`
	BundleID string `json:"bundle_id,omitempty"`
	RunID    string `json:"run_id,omitempty"`
	Passed   bool   `json:"passed"`
	Cached   bool   `json:"cached,omitempty"`
	Report   string `json:"report,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	applyGateFlags(cfg)

	source := args[0]
	out := cmd.ErrOrStderr()
	workers := cfg.Concurrency.Workers
	outputDir := cfg.Output.Dir

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "  Reportgate Batch\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "  Input:        %s\n", source)
	fmt.Fprintf(out, "  Workers:      %d\n", workers)
	fmt.Fprintf(out, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(out, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(out, "\n")

	p, err := gate.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	paths, err := worker.ReadBundlePaths(source)
	if err != nil {
		return fmt.Errorf("read bundle paths: %w", err)
	}
	fmt.Fprintf(out, "✓ Found %d bundles\n\n", len(paths))

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	processor := worker.NewBatchProcessor(p, workers, logger)
	results := processor.ProcessPaths(ctx, paths)

	renderer := gate.NewRenderer(cfg.Output.Verbose)
	entries := make([]batchEntry, 0, len(results))
	written := make(map[string]int)

	for _, result := range results {
		entry := batchEntry{Path: result.Path, BundleID: result.BundleID}

		if result.Error != nil {
			entry.Error = result.Error.Error()
			entries = append(entries, entry)
			fmt.Fprintf(out, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		report := result.Report
		entry.RunID = report.RunID
		entry.Passed = report.Passed
		entry.Cached = report.Cached

		name := sanitizeFilename(report.BundleID)
		if n := written[name]; n > 0 {
			name = fmt.Sprintf("%s-%d", name, n+1)
		}
		written[sanitizeFilename(report.BundleID)]++

		jsonPath := filepath.Join(outputDir, name+".json")
		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			entry.Error = err.Error()
			entries = append(entries, entry)
			fmt.Fprintf(out, "✗ %s: failed to write JSON: %v\n", report.BundleID, err)
			continue
		}
		entry.Report = jsonPath
		entries = append(entries, entry)

		if report.Passed {
			fmt.Fprintf(out, "✓ %s%s\n", report.BundleID, describeReport(report.PreWrite != nil, report.PostWrite != nil, report.Cached))
		} else {
			fmt.Fprintf(out, "✗ %s: gate failed (%s)\n", report.BundleID, jsonPath)
		}
	}

	summaryPath := filepath.Join(outputDir, "batch-summary.json")
	if err := renderer.RenderJSON(entries, summaryPath); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := p.Metrics().WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
	}

	passed, failed, errored := worker.Tally(results)

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "  Batch Complete\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "  Total:     %d bundles\n", len(results))
	fmt.Fprintf(out, "  Passed:    %d\n", passed)
	fmt.Fprintf(out, "  Failed:    %d\n", failed)
	fmt.Fprintf(out, "  Errors:    %d\n", errored)
	fmt.Fprintf(out, "  Output:    %s\n", outputDir)
	fmt.Fprintf(out, "\n")

	if errored > 0 {
		return fmt.Errorf("%d of %d bundles could not be checked", errored, len(results))
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d bundles", gate.ErrGateFailed, failed, len(results))
	}
	return nil
}

func describeReport(pre, post, cached bool) string {
	var stages []string
	if pre {
		stages = append(stages, "pre-write")
	}
	if post {
		stages = append(stages, "post-write")
	}
	if cached {
		stages = append(stages, "cached")
	}
	if len(stages) == 0 {
		return ""
	}
	return " (" + strings.Join(stages, ", ") + ")"
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a bundle ID into a safe file name
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		s = "bundle"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
