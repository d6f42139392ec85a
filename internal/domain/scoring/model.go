package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"
)

// modelFile is the on-disk format produced by the offline training pipeline.
// Training itself is out of scope here; the engine only consumes the weights.
type modelFile struct {
	Version           string             `json:"version"`
	TrainedSamples    int                `json:"trained_samples"`
	ScoreBias         float64            `json:"score_bias"`
	ScoreWeights      map[string]float64 `json:"score_weights"`
	ConversionBias    float64            `json:"conversion_bias"`
	ConversionWeights map[string]float64 `json:"conversion_weights"`
}

// ModelEngine scores leads with a trained logistic model. Construction fails
// when the weight file is missing or malformed; once constructed, scoring is
// pure arithmetic and cannot fail.
type ModelEngine struct {
	version string
	samples int

	scoreBias float64
	scoreW    map[string]float64
	convBias  float64
	convW     map[string]float64
}

func LoadModel(path string) (*ModelEngine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var mf modelFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("parse model file: %w", err)
	}
	if len(mf.ScoreWeights) == 0 || len(mf.ConversionWeights) == 0 {
		return nil, fmt.Errorf("model file %s has empty weight tables", path)
	}

	return &ModelEngine{
		version:   mf.Version,
		samples:   mf.TrainedSamples,
		scoreBias: mf.ScoreBias,
		scoreW:    mf.ScoreWeights,
		convBias:  mf.ConversionBias,
		convW:     mf.ConversionWeights,
	}, nil
}

// TrainedSamples reports how much historical data backed the weights; the
// blended engine derives its confidence from it.
func (e *ModelEngine) TrainedSamples() int { return e.samples }

func (e *ModelEngine) Version() string { return e.version }

func (e *ModelEngine) Score(l *lead.Lead) int {
	feats := leadFeatures(l)

	z := e.scoreBias
	for name, w := range e.scoreW {
		z += w * feats[name]
	}
	return clampScore(int(math.Round(sigmoid(z) * 100)))
}

func (e *ModelEngine) ConversionProbability(l *lead.Lead, p *provider.Provider) float64 {
	feats := leadFeatures(l)
	for name, v := range providerFeatures(p) {
		feats[name] = v
	}

	z := e.convBias
	for name, w := range e.convW {
		z += w * feats[name]
	}
	return clamp01(sigmoid(z))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// leadFeatures normalizes lead fields into the [0,1] vector the model was
// trained on. Feature names are part of the model-file contract.
func leadFeatures(l *lead.Lead) map[string]float64 {
	desc := strings.TrimSpace(l.Description)
	words := len(strings.Fields(desc))

	feats := map[string]float64{
		"desc_len":    math.Min(float64(len(desc))/400.0, 1),
		"word_count":  math.Min(float64(words)/60.0, 1),
		"title_len":   math.Min(float64(len(strings.TrimSpace(l.Title)))/60.0, 1),
		"budget":      float64(l.BudgetTier.Rank()) / 5.0,
		"urgency":     float64(l.Urgency.Rank()) / 3.0,
		"intent":      float64(l.Intent.Rank()) / 3.0,
		"has_coords":  0,
		"has_phone":   0,
		"min_job_log": 0,
	}
	if l.HasCoordinates() {
		feats["has_coords"] = 1
	}
	if strings.TrimSpace(l.ContactPhone) != "" {
		feats["has_phone"] = 1
	}
	if l.MinJobValue > 0 {
		feats["min_job_log"] = math.Min(math.Log10(float64(l.MinJobValue))/6.0, 1)
	}
	return feats
}

func providerFeatures(p *provider.Provider) map[string]float64 {
	return map[string]float64{
		"provider_rating":   p.Rating / 5.0,
		"provider_tier":     float64(p.Tier.Weight()) / 3.0,
		"provider_response": responsivenessFactor(p.ResponseTimeHours),
	}
}
