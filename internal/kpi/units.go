package kpi

import (
	"strings"

	"github.com/ppiankov/reportgate/internal/model"
)

// UnitClass decides how a KPI group is compared
type UnitClass string

const (
	UnitPercent  UnitClass = "percent"
	UnitCurrency UnitClass = "currency"
	UnitOther    UnitClass = "other"
)

// UnitTable canonicalizes unit aliases and rescales currency denominations
// to a common base. Lookups are case-insensitive; canonical names keep the
// case they were configured with.
type UnitTable struct {
	aliases      map[string]string  // lower(alias) -> canonical
	scales       map[string]float64 // lower(canonical) -> factor
	names        map[string]string  // lower(canonical) -> canonical
	baseCurrency string
	percentUnit  string
}

// NewUnitTable builds a unit table from configuration
func NewUnitTable(cfg model.UnitConfig) *UnitTable {
	u := &UnitTable{
		aliases:      make(map[string]string, len(cfg.Aliases)),
		scales:       make(map[string]float64, len(cfg.Scales)),
		names:        make(map[string]string, len(cfg.Scales)+2),
		baseCurrency: cfg.BaseCurrency,
		percentUnit:  cfg.PercentUnit,
	}
	if u.baseCurrency == "" {
		u.baseCurrency = "SEK"
	}
	if u.percentUnit == "" {
		u.percentUnit = "%"
	}

	for alias, canonical := range cfg.Aliases {
		canonical = strings.TrimSpace(canonical)
		u.aliases[strings.ToLower(strings.TrimSpace(alias))] = canonical
		u.names[strings.ToLower(canonical)] = canonical
	}
	// Configuration loaders may lowercase map keys, so display names come
	// from alias targets and the dedicated fields before the scales map.
	u.names[strings.ToLower(u.baseCurrency)] = u.baseCurrency
	u.names[strings.ToLower(u.percentUnit)] = u.percentUnit

	for name, factor := range cfg.Scales {
		key := strings.ToLower(strings.TrimSpace(name))
		u.scales[key] = factor
		if _, ok := u.names[key]; !ok {
			u.names[key] = strings.TrimSpace(name)
		}
	}
	if _, ok := u.scales[strings.ToLower(u.baseCurrency)]; !ok {
		u.scales[strings.ToLower(u.baseCurrency)] = 1
	}

	return u
}

// Canonical maps a raw unit to its canonical name. Unknown units are returned trimmed.
func (u *UnitTable) Canonical(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ""
	}
	canonical := strings.TrimSpace(raw)
	if mapped, ok := u.aliases[key]; ok {
		canonical = mapped
	}
	if name, ok := u.names[strings.ToLower(canonical)]; ok {
		return name
	}
	return canonical
}

// Classify tells whether a canonical unit is a percentage, a currency, or something else
func (u *UnitTable) Classify(canonical string) UnitClass {
	key := strings.ToLower(canonical)
	if key == strings.ToLower(u.percentUnit) {
		return UnitPercent
	}
	if _, ok := u.scales[key]; ok {
		return UnitCurrency
	}
	return UnitOther
}

// ToBase rescales a currency value to the base currency. Non-currency values pass through.
func (u *UnitTable) ToBase(value float64, canonical string) float64 {
	if factor, ok := u.scales[strings.ToLower(canonical)]; ok {
		return value * factor
	}
	return value
}

// BaseKey is the unit component of a canonical KPI key for currency groups
func (u *UnitTable) BaseKey() string {
	return u.baseCurrency + "(base)"
}

// BaseCurrency returns the base currency name
func (u *UnitTable) BaseCurrency() string {
	return u.baseCurrency
}

// PercentUnit returns the canonical percent unit
func (u *UnitTable) PercentUnit() string {
	return u.percentUnit
}
