// Demo program for cross-document KPI conflict detection.
// It feeds the same KPIs, reported in different denominations by different
// documents, through the normalizer and the conflict scanner.
package main

import (
	"fmt"
	"strings"

	"github.com/ppiankov/reportgate/internal/kpi"
	"github.com/ppiankov/reportgate/internal/model"
)

func table(evidenceID, docID string, headers []string, rows ...[]model.Cell) model.EvidenceTable {
	return model.EvidenceTable{
		EvidenceID: evidenceID,
		DocID:      docID,
		Headers:    headers,
		Rows:       rows,
	}
}

func main() {
	fmt.Println("=== KPI Conflict Detection Demo ===")
	fmt.Println()

	t := model.TextCell
	n := model.NumberCell

	tables := []model.EvidenceTable{
		table("E-001", "arsredovisning-2023",
			[]string{"Nyckeltal", "År", "Belopp (MSEK)"},
			[]model.Cell{t("Intäkter"), n(2023), n(45)},
			[]model.Cell{t("Personalkostnader"), n(2023), n(18)},
		),
		table("E-002", "delarsrapport-q4",
			[]string{"Nyckeltal", "År", "Belopp (tkr)"},
			[]model.Cell{t("Intäkter"), n(2023), t("45 000")},
			[]model.Cell{t("Personalkostnader"), n(2023), t("19 200")},
		),
		table("E-003", "styrelsepresentation",
			[]string{"Nyckeltal", "År", "Belopp"},
			[]model.Cell{t("Intäkter"), n(2023), t("60 MSEK")},
		),
		table("E-004", "hallbarhetsrapport",
			[]string{"Nyckeltal", "År", "Andel (%)"},
			[]model.Cell{t("Förnybar energi"), n(2023), t("62,5%")},
		),
		table("E-005", "arsredovisning-2023",
			[]string{"Nyckeltal", "År", "Andel (%)"},
			[]model.Cell{t("Förnybar energi"), n(2023), t("58%")},
		),
	}

	points := kpi.TablesToKpiPoints(tables)
	fmt.Printf("Normalized %d KPI points from %d tables\n", len(points), len(tables))
	fmt.Println(strings.Repeat("-", 60))
	for _, p := range points {
		year := "-"
		if p.Year != nil {
			year = fmt.Sprint(*p.Year)
		}
		fmt.Printf("  %-20s %-5s %12g %-5s  %s (%s)\n", p.Label, year, p.Value, p.Unit, p.EvidenceID, p.DocID)
	}
	fmt.Println()

	conflicts := kpi.DetectConflicts(points)
	if len(conflicts) == 0 {
		fmt.Println("✓ No conflicting KPIs")
		return
	}

	fmt.Printf("⚠️  CONFLICTS DETECTED: %d\n", len(conflicts))
	for _, c := range conflicts {
		fmt.Printf("\n  [%s] %s\n", c.Severity, c.Message)
		for _, p := range c.Points {
			fmt.Printf("     - %s (%s): %g %s = %g %s\n",
				p.EvidenceID, p.DocID, p.RawValue, p.RawUnit, p.Value, c.Unit)
		}
	}

	fmt.Println("\n=== Demo Complete ===")
}
