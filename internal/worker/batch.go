package worker

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/reportgate/internal/gate"
	"github.com/ppiankov/reportgate/internal/model"
)

// Checker runs the gate over one bundle
type Checker interface {
	Check(ctx context.Context, b *gate.Bundle) (*model.GateReport, error)
}

// CheckJob loads one bundle file and checks it
type CheckJob struct {
	Path    string
	Checker Checker
}

// Execute executes the check job
func (j *CheckJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &CheckResult{Path: j.Path, Error: err}
	}

	b, err := gate.LoadBundle(j.Path)
	if err != nil {
		return &CheckResult{Path: j.Path, Error: err}
	}

	report, err := j.Checker.Check(ctx, b)
	if err != nil {
		return &CheckResult{Path: j.Path, BundleID: b.ID, Error: err}
	}
	return &CheckResult{Path: j.Path, BundleID: b.ID, Report: report}
}

// CheckResult is the outcome of one check job. Error is set when the bundle
// could not be loaded or checked, not when the gate failed.
type CheckResult struct {
	Path     string
	BundleID string
	Report   *model.GateReport
	Error    error
}

// GetError returns the error from the check result
func (r *CheckResult) GetError() error {
	return r.Error
}

// Passed reports whether the bundle was checked and passed
func (r *CheckResult) Passed() bool {
	return r.Error == nil && r.Report != nil && r.Report.Passed
}

// BatchProcessor checks many bundles concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
	logger      *slog.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker Checker, concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessPaths checks bundle files concurrently. Results follow the order of
// paths; bundles skipped by cancellation are reported with the context error.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*CheckResult {
	if len(paths) == 0 {
		return []*CheckResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&CheckJob{Path: path, Checker: b.checker})
	}

	results := pool.Wait()

	byPath := make(map[string]*CheckResult, len(results))
	for _, r := range results {
		cr := r.(*CheckResult)
		byPath[cr.Path] = cr
		if cr.Error != nil {
			b.logger.Warn("bundle not checked", "path", cr.Path, "error", cr.Error)
		}
	}

	out := make([]*CheckResult, len(paths))
	for i, path := range paths {
		if cr, ok := byPath[path]; ok {
			out[i] = cr
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &CheckResult{Path: path, Error: err}
	}
	return out
}

// ProcessFile reads bundle paths from a list file or directory and checks them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*CheckResult, error) {
	paths, err := ReadBundlePaths(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle paths: %w", err)
	}
	return b.ProcessPaths(ctx, paths), nil
}

// Tally counts passed, failed and unchecked bundles
func Tally(results []*CheckResult) (passed, failed, errored int) {
	for _, r := range results {
		switch {
		case r.Error != nil:
			errored++
		case r.Passed():
			passed++
		default:
			failed++
		}
	}
	return passed, failed, errored
}

// ReadBundlePaths lists bundle files. A directory yields every .json, .yaml
// and .yml file below it in lexical order. Any other file is read as a list
// of paths, one per line, relative to the list file; blank lines and "#"
// comments are skipped and duplicates are dropped.
func ReadBundlePaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return walkBundles(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(path)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}

func walkBundles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
