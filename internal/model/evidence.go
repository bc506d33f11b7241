package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EvidenceTable is one table extracted from a source document
type EvidenceTable struct {
	EvidenceID string   `json:"evidence_id" yaml:"evidence_id"`                   // Stable external reference (e.g., "E-001")
	DocID      string   `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`         // Source document the table came from
	Page       *int     `json:"page,omitempty" yaml:"page,omitempty"`             // Page in the source document
	TableRef   string   `json:"table_ref,omitempty" yaml:"table_ref,omitempty"`   // Table label in the source (e.g., "Tabell 3")
	SourceLoc  string   `json:"source_loc,omitempty" yaml:"source_loc,omitempty"` // Free-form location hint
	Actor      string   `json:"actor,omitempty" yaml:"actor,omitempty"`           // Reporting organisation, if known for the whole table
	Headers    []string `json:"headers" yaml:"headers"`
	Rows       [][]Cell `json:"rows" yaml:"rows"`
}

// Cell returns the cell at (row, col), or a null cell when out of range
func (t EvidenceTable) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return Cell{Kind: CellNull}
	}
	return t.Rows[row][col]
}

// Header returns the header of a column, or "" when the column has none
func (t EvidenceTable) Header(col int) string {
	if col < 0 || col >= len(t.Headers) {
		return ""
	}
	return t.Headers[col]
}

// CellKind tells which variant a Cell holds
type CellKind int

const (
	CellNull CellKind = iota
	CellText
	CellNumber
)

// Cell is a single table value: a string, a number, or null.
// The zero value is null.
type Cell struct {
	Kind CellKind
	Text string
	Num  float64
}

// TextCell creates a string cell
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// NumberCell creates a numeric cell
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Num: v}
}

// IsNull reports whether the cell holds no value
func (c Cell) IsNull() bool {
	return c.Kind == CellNull
}

// IsNumber reports whether the cell holds a JSON number
func (c Cell) IsNumber() bool {
	return c.Kind == CellNumber
}

// String renders the cell as text. Numbers use the shortest exact form, null is "".
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON encodes the cell as a JSON string, number, or null
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellText:
		return json.Marshal(c.Text)
	case CellNumber:
		return json.Marshal(c.Num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON string, number, or null.
// Booleans are kept as text so that a stray true/false never aborts a whole table.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Cell{Kind: CellNull}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode text cell: %w", err)
		}
		*c = TextCell(s)
	case 't', 'f':
		*c = TextCell(string(data))
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode numeric cell: %w", err)
		}
		*c = NumberCell(v)
	}
	return nil
}

// UnmarshalYAML decodes a table. Rows are decoded cell by cell: yaml.v3 drops
// null sequence elements bound for a struct, which would shift later cells
// one column left.
func (t *EvidenceTable) UnmarshalYAML(node *yaml.Node) error {
	type plain EvidenceTable
	if err := node.Decode((*plain)(t)); err != nil {
		return err
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "rows" {
			continue
		}
		rows, err := decodeRows(node.Content[i+1])
		if err != nil {
			return err
		}
		t.Rows = rows
	}
	return nil
}

func decodeRows(node *yaml.Node) ([][]Cell, error) {
	node = resolveAlias(node)
	if node.ShortTag() == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: rows must be a sequence", node.Line)
	}

	rows := make([][]Cell, len(node.Content))
	for r, rowNode := range node.Content {
		rowNode = resolveAlias(rowNode)
		if rowNode.ShortTag() == "!!null" {
			continue
		}
		if rowNode.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: row must be a sequence", rowNode.Line)
		}
		row := make([]Cell, len(rowNode.Content))
		for c, cellNode := range rowNode.Content {
			if err := row[c].UnmarshalYAML(resolveAlias(cellNode)); err != nil {
				return nil, err
			}
		}
		rows[r] = row
	}
	return rows, nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// UnmarshalYAML decodes a scalar node. Only unquoted ints and floats become numbers.
func (c *Cell) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: table cell must be a scalar", node.Line)
	}

	switch node.ShortTag() {
	case "!!null":
		*c = Cell{Kind: CellNull}
	case "!!int", "!!float":
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: decode numeric cell: %w", node.Line, err)
		}
		*c = NumberCell(v)
	default:
		*c = TextCell(node.Value)
	}
	return nil
}

// MarshalYAML encodes the cell as a YAML scalar
func (c Cell) MarshalYAML() (interface{}, error) {
	switch c.Kind {
	case CellText:
		return c.Text, nil
	case CellNumber:
		return c.Num, nil
	default:
		return nil, nil
	}
}
