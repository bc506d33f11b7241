package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/reportgate/internal/model"
)

func txt(s string) model.Cell { return model.TextCell(s) }

func num(v float64) model.Cell { return model.NumberCell(v) }

func TestTablesToKpiPoints_YearColumnAndCurrencyHeader(t *testing.T) {
	table := model.EvidenceTable{
		EvidenceID: "E-001",
		DocID:      "arsredovisning-2024",
		SourceLoc:  "s. 12",
		Headers:    []string{"Nyckeltal", "År", "Belopp (MSEK)"},
		Rows: [][]model.Cell{
			{txt("Investeringar"), txt("2024"), txt("45")},
			{txt("Driftkostnader"), num(2023), num(120.5)},
		},
	}

	points := TablesToKpiPoints([]model.EvidenceTable{table})
	require.Len(t, points, 2)

	first := points[0]
	assert.Equal(t, "Investeringar", first.Label)
	assert.Equal(t, "MSEK", first.Unit)
	assert.Equal(t, 45.0, first.Value)
	require.NotNil(t, first.Year)
	assert.Equal(t, 2024, *first.Year)
	assert.Equal(t, "E-001", first.EvidenceID)
	assert.Equal(t, "arsredovisning-2024", first.DocID)
	assert.Equal(t, "s. 12", first.SourceLoc)
	assert.Equal(t, 0, first.RowIndex)
	assert.Equal(t, 2, first.ColIndex)

	second := points[1]
	assert.Equal(t, "Driftkostnader", second.Label)
	assert.Equal(t, 120.5, second.Value)
	require.NotNil(t, second.Year)
	assert.Equal(t, 2023, *second.Year)
}

func TestTablesToKpiPoints_PercentAndCurrencyInCells(t *testing.T) {
	table := model.EvidenceTable{
		EvidenceID: "E-002",
		Headers:    []string{"Mått", "Utfall 2024 (%)"},
		Rows: [][]model.Cell{
			{txt("Andel förnybar el"), txt("62,5 %")},
			{txt("Sjukfrånvaro"), num(4.1)},
		},
	}

	points := TablesToKpiPoints([]model.EvidenceTable{table})
	require.Len(t, points, 2)

	assert.Equal(t, "%", points[0].Unit)
	assert.Equal(t, 62.5, points[0].Value)
	require.NotNil(t, points[0].Year)
	assert.Equal(t, 2024, *points[0].Year)

	assert.Equal(t, "%", points[1].Unit)
	assert.Equal(t, 4.1, points[1].Value)
}

func TestTablesToKpiPoints_CellCurrencyTokenWins(t *testing.T) {
	table := model.EvidenceTable{
		EvidenceID: "E-003",
		Headers:    []string{"Post", "Belopp (tkr)"},
		Rows:       [][]model.Cell{{txt("Investeringar"), txt("45 000 000 kr")}},
	}

	points := TablesToKpiPoints([]model.EvidenceTable{table})
	require.Len(t, points, 1)
	assert.Equal(t, "SEK", points[0].Unit)
	assert.Equal(t, 45_000_000.0, points[0].Value)
}

func TestTablesToKpiPoints_DigitSampleFallback(t *testing.T) {
	table := model.EvidenceTable{
		EvidenceID: "E-004",
		Headers:    []string{"Mått", "2023", "2024"},
		Rows: [][]model.Cell{
			{txt("Antal elever"), num(410), num(432)},
			{txt("Antal lärare"), num(31), num(33)},
		},
	}

	points := TablesToKpiPoints([]model.EvidenceTable{table})
	require.Len(t, points, 4)

	assert.Equal(t, "Antal elever", points[0].Label)
	assert.Equal(t, UnitValue, points[0].Unit)
	require.NotNil(t, points[0].Year)
	assert.Equal(t, 2023, *points[0].Year)
	require.NotNil(t, points[1].Year)
	assert.Equal(t, 2024, *points[1].Year)
	assert.Equal(t, 432.0, points[1].Value)
}

func TestTablesToKpiPoints_UnlabelledYearColumn(t *testing.T) {
	table := model.EvidenceTable{
		EvidenceID: "E-005",
		Headers:    []string{"Nyckeltal", "Period", "Antal"},
		Rows: [][]model.Cell{
			{txt("Elever"), txt("2023"), txt("120")},
			{txt("Elever"), txt("2024"), txt("128")},
		},
	}

	points := TablesToKpiPoints([]model.EvidenceTable{table})
	require.Len(t, points, 2)
	for i, want := range []int{2023, 2024} {
		assert.Equal(t, "Elever", points[i].Label)
		assert.Equal(t, 2, points[i].ColIndex)
		require.NotNil(t, points[i].Year)
		assert.Equal(t, want, *points[i].Year)
	}
}

func TestTablesToKpiPoints_ActorColumn(t *testing.T) {
	table := model.EvidenceTable{
		EvidenceID: "E-006",
		Actor:      "Kommunen",
		Headers:    []string{"Aktör", "Nyckeltal", "Belopp kr"},
		Rows: [][]model.Cell{
			{txt("Region Norr"), txt("Bidrag"), num(1500)},
			{model.Cell{}, txt("Bidrag"), num(900)},
		},
	}

	points := TablesToKpiPoints([]model.EvidenceTable{table})
	require.Len(t, points, 2)
	assert.Equal(t, "Region Norr", points[0].Actor)
	assert.Equal(t, "Bidrag", points[0].Label)
	assert.Equal(t, "SEK", points[0].Unit)
	assert.Equal(t, "Kommunen", points[1].Actor)
}

func TestTablesToKpiPoints_SkipsUnusableCells(t *testing.T) {
	table := model.EvidenceTable{
		EvidenceID: "E-007",
		Headers:    []string{"Post", "Belopp (kr)"},
		Rows: [][]model.Cell{
			{txt("Saknas"), model.Cell{}},
			{txt("Ej angivet"), txt("uppgift saknas")},
			{txt("Lokaler"), txt("800")},
		},
	}

	points := TablesToKpiPoints([]model.EvidenceTable{table})
	require.Len(t, points, 1)
	assert.Equal(t, "Lokaler", points[0].Label)
	assert.Equal(t, 2, points[0].RowIndex)
}

func TestTablesToKpiPoints_NoValueColumns(t *testing.T) {
	tables := []model.EvidenceTable{
		{EvidenceID: "E-008"},
		{EvidenceID: "E-009", Headers: []string{"Namn", "Roll"}, Rows: [][]model.Cell{{txt("Anna"), txt("Ordförande")}}},
	}

	points := TablesToKpiPoints(tables)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestNormalizer_PreferColumnLabels(t *testing.T) {
	cfg := model.DefaultConfig().KPI
	cfg.PreferColumnLabels = true

	n, err := NewNormalizer(cfg)
	require.NoError(t, err)

	table := model.EvidenceTable{
		EvidenceID: "E-010",
		Headers:    []string{"Förvaltning", "Nettokostnad (MSEK)"},
		Rows:       [][]model.Cell{{txt("Skola"), num(812)}},
	}

	points := n.Points([]model.EvidenceTable{table})
	require.Len(t, points, 1)
	assert.Equal(t, "Nettokostnad (MSEK)", points[0].Label)
	assert.Equal(t, "Skola", points[0].Actor)
}

func TestNewNormalizer_InvalidPattern(t *testing.T) {
	cfg := model.DefaultConfig().KPI
	cfg.YearHeaderPattern = "[unclosed"

	_, err := NewNormalizer(cfg)
	assert.ErrorContains(t, err, "year header")
}

func TestTablesToKpiPoints_CurrencyGluedToNumber(t *testing.T) {
	table := model.EvidenceTable{
		EvidenceID: "E-011",
		Headers:    []string{"Post", "Belopp"},
		Rows: [][]model.Cell{
			{txt("Investeringar"), txt("45MSEK")},
			{txt("Bidrag"), txt("500kr")},
		},
	}

	points := TablesToKpiPoints([]model.EvidenceTable{table})
	require.Len(t, points, 2)
	assert.Equal(t, "MSEK", points[0].Unit)
	assert.Equal(t, 45.0, points[0].Value)
	assert.Equal(t, "SEK", points[1].Unit)
	assert.Equal(t, 500.0, points[1].Value)
}
