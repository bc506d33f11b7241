package model

import "strings"

// Claim is an assertion produced by the reasoning stage, grounded in evidence
type Claim struct {
	ID          string   `json:"id" yaml:"id"`
	Strength    Strength `json:"strength" yaml:"strength"`
	EvidenceIDs []string `json:"evidence_ids" yaml:"evidence_ids"`
}

// Strength is the confidence the reasoning stage attached to a claim
type Strength string

const (
	StrengthHigh   Strength = "high"
	StrengthMedium Strength = "medium"
	StrengthLow    Strength = "low"
)

// Rank orders strengths: high (3) > medium (2) > low (1). Unknown values rank 0.
func (s Strength) Rank() int {
	switch Strength(strings.ToLower(strings.TrimSpace(string(s)))) {
	case StrengthHigh:
		return 3
	case StrengthMedium:
		return 2
	case StrengthLow:
		return 1
	default:
		return 0
	}
}
