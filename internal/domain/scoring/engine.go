package scoring

import (
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"
)

// Engine produces a 0–100 lead quality score and a 0–1 conversion-probability
// estimate for a lead/provider pair. Implementations must be pure: no stored
// state changes, no external calls during scoring.
type Engine interface {
	Score(l *lead.Lead) int
	ConversionProbability(l *lead.Lead, p *provider.Provider) float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
