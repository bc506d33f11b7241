package gate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/reportgate/internal/model"
)

// Bundle is everything the gate checks for one report: the evidence tables it
// was written from and, once the writer has run, the report and its claims.
type Bundle struct {
	ID                  string                `json:"id" yaml:"id"`
	Tables              []model.EvidenceTable `json:"tables" yaml:"tables"`
	ReportMarkdown      string                `json:"report_markdown,omitempty" yaml:"report_markdown,omitempty"`
	ReportPath          string                `json:"report_path,omitempty" yaml:"report_path,omitempty"` // Relative to the bundle file
	EvidenceIDs         []string              `json:"evidence_ids,omitempty" yaml:"evidence_ids,omitempty"`
	Claims              []model.Claim         `json:"claims,omitempty" yaml:"claims,omitempty"`
	RequiredCoveragePct *float64              `json:"required_coverage_pct,omitempty" yaml:"required_coverage_pct,omitempty"`
	ExecSummaryHeadings []string              `json:"exec_summary_headings,omitempty" yaml:"exec_summary_headings,omitempty"`
}

// HasReport reports whether the bundle carries a written report to critique
func (b *Bundle) HasReport() bool {
	return strings.TrimSpace(b.ReportMarkdown) != ""
}

// CitableIDs returns the evidence IDs a report may cite. When the bundle does
// not list them, every table's evidence ID is citable. An explicitly empty
// list is kept, so every citation is unknown.
func (b *Bundle) CitableIDs() []string {
	if b.EvidenceIDs != nil {
		return b.EvidenceIDs
	}
	ids := make([]string, 0, len(b.Tables))
	seen := make(map[string]bool, len(b.Tables))
	for _, t := range b.Tables {
		if t.EvidenceID != "" && !seen[t.EvidenceID] {
			seen[t.EvidenceID] = true
			ids = append(ids, t.EvidenceID)
		}
	}
	return ids
}

// LoadBundle reads a bundle file and resolves its report path.
// A bundle without an ID is named after its file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}

	var b Bundle
	if err := decode(path, data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle %s: %w", path, err)
	}

	if b.ID == "" {
		b.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if b.ReportMarkdown == "" && b.ReportPath != "" {
		reportPath := b.ReportPath
		if !filepath.IsAbs(reportPath) {
			reportPath = filepath.Join(filepath.Dir(path), reportPath)
		}
		report, err := os.ReadFile(reportPath)
		if err != nil {
			return nil, fmt.Errorf("read report for bundle %s: %w", b.ID, err)
		}
		b.ReportMarkdown = string(report)
	}

	return &b, nil
}

// LoadTables reads evidence tables from a file holding either a list of
// tables or an object with a "tables" field
func LoadTables(path string) ([]model.EvidenceTable, error) {
	return loadList[model.EvidenceTable](path, "tables")
}

// LoadClaims reads claims from a file holding either a list of claims or an
// object with a "claims" field
func LoadClaims(path string) ([]model.Claim, error) {
	return loadList[model.Claim](path, "claims")
}

// ReadIDList reads evidence IDs from a JSON or YAML list, or from a text file
// with one ID per line. Blank lines and "#" comments are skipped and
// duplicates are dropped.
func ReadIDList(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		ids, err := loadList[string](path, "evidence_ids")
		if err != nil {
			return nil, err
		}
		return dedupe(ids), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ID list: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ID list: %w", err)
	}

	return dedupe(ids), nil
}

// loadList decodes a top-level list, or the named field of a top-level object
func loadList[T any](path, field string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}

	out := []T{}
	if isYAML(path) {
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if len(doc.Content) == 0 {
			return out, nil
		}
		node := doc.Content[0]
		if node.Kind == yaml.MappingNode {
			if node = mappingValue(node, field); node == nil {
				return nil, fmt.Errorf("decode %s: no %q field", path, field)
			}
		}
		if err := node.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return out, nil
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		raw, ok := obj[field]
		if !ok {
			return nil, fmt.Errorf("decode %s: no %q field", path, field)
		}
		trimmed = raw
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func decode(path string, data []byte, v any) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
