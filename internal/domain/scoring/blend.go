package scoring

import (
	"math"

	"go.uber.org/zap"

	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"
)

// ConfidenceCurve maps historical sample count to the weight given to the
// model-backed result. It must stay below 1 so the rule-based floor is never
// fully overridden.
type ConfidenceCurve func(samples int) float64

// DefaultConfidenceCurve steps from 0.2 at minimal data up to 0.8 at full data.
func DefaultConfidenceCurve(samples int) float64 {
	switch {
	case samples < 50:
		return 0.2
	case samples < 500:
		return 0.4
	case samples < 5000:
		return 0.6
	default:
		return 0.8
	}
}

// Options select the scoring strategy at construction time; there is no
// runtime type inspection anywhere in the callers.
type Options struct {
	MLEnabled  bool
	Confidence ConfidenceCurve
}

// BlendedEngine combines the rule engine with an optional model:
// final = rule*(1-c) + model*c. With no model loaded it is the rule engine.
type BlendedEngine struct {
	rule       Engine
	model      *ModelEngine
	confidence ConfidenceCurve
	logger     *zap.Logger
}

// NewBlendedEngine wires the strategy. model may be nil (ML disabled or the
// weight file failed to load); the engine then degrades to pure rule output.
func NewBlendedEngine(rule Engine, model *ModelEngine, opts Options, logger *zap.Logger) *BlendedEngine {
	curve := opts.Confidence
	if curve == nil {
		curve = DefaultConfidenceCurve
	}
	if !opts.MLEnabled {
		model = nil
	}
	return &BlendedEngine{
		rule:       rule,
		model:      model,
		confidence: curve,
		logger:     logger,
	}
}

// HasModel reports whether a model-backed result participates in blending.
func (e *BlendedEngine) HasModel() bool { return e.model != nil }

// ModelScore exposes the raw model score for the quality gate's model
// threshold; ok is false when no model is loaded so callers can skip the rule
// instead of failing it.
func (e *BlendedEngine) ModelScore(l *lead.Lead) (int, bool) {
	if e.model == nil {
		return 0, false
	}
	return e.model.Score(l), true
}

func (e *BlendedEngine) Score(l *lead.Lead) int {
	ruleScore := e.rule.Score(l)
	if e.model == nil {
		return ruleScore
	}

	c := e.confidence(e.model.TrainedSamples())
	blended := float64(ruleScore)*(1-c) + float64(e.model.Score(l))*c
	return clampScore(int(math.Round(blended)))
}

func (e *BlendedEngine) ConversionProbability(l *lead.Lead, p *provider.Provider) float64 {
	ruleProb := e.rule.ConversionProbability(l, p)
	if e.model == nil {
		return ruleProb
	}

	c := e.confidence(e.model.TrainedSamples())
	return clamp01(ruleProb*(1-c) + e.model.ConversionProbability(l, p)*c)
}
