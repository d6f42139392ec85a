package scoring

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"leadmarket/internal/domain/lead"
)

func writeModelFile(t *testing.T, samples int) string {
	t.Helper()
	raw := `{
		"version": "test-1",
		"trained_samples": ` + strconv.Itoa(samples) + `,
		"score_bias": 3.0,
		"score_weights": {"desc_len": 1.0, "budget": 0.5},
		"conversion_bias": 0.0,
		"conversion_weights": {"intent": 1.0, "provider_rating": 1.0}
	}`
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadModelRejectsMissingOrEmpty(t *testing.T) {
	if _, err := LoadModel(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte(`{"version":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(empty); err == nil {
		t.Fatal("expected error for empty weight tables")
	}
}

func TestDefaultConfidenceCurve(t *testing.T) {
	cases := []struct {
		samples int
		want    float64
	}{
		{0, 0.2},
		{49, 0.2},
		{50, 0.4},
		{499, 0.4},
		{500, 0.6},
		{4999, 0.6},
		{5000, 0.8},
		{100000, 0.8},
	}
	for _, c := range cases {
		if got := DefaultConfidenceCurve(c.samples); got != c.want {
			t.Fatalf("confidence(%d) = %f, want %f", c.samples, got, c.want)
		}
	}
}

func TestBlendedEngineWithoutModelIsRuleEngine(t *testing.T) {
	rule := NewRuleEngine()
	e := NewBlendedEngine(rule, nil, Options{MLEnabled: true}, zap.NewNop())

	if e.HasModel() {
		t.Fatal("expected no model")
	}
	l := &lead.Lead{Description: "Need a licensed electrician to replace the switchboard."}
	if e.Score(l) != rule.Score(l) {
		t.Fatal("expected pure rule score without a model")
	}
	if _, ok := e.ModelScore(l); ok {
		t.Fatal("expected ModelScore ok=false without a model")
	}
}

func TestBlendedEngineIgnoresModelWhenDisabled(t *testing.T) {
	model, err := LoadModel(writeModelFile(t, 10000))
	if err != nil {
		t.Fatal(err)
	}
	e := NewBlendedEngine(NewRuleEngine(), model, Options{MLEnabled: false}, zap.NewNop())
	if e.HasModel() {
		t.Fatal("expected disabled model to be dropped")
	}
}

func TestBlendedScoreFollowsConfidence(t *testing.T) {
	rule := NewRuleEngine()
	l := &lead.Lead{Description: "short one"}

	// score_bias 3.0 pushes the model score near 100; rule score for this
	// lead is near the base. More samples must pull the blend toward the model.
	coldModel, err := LoadModel(writeModelFile(t, 10))
	if err != nil {
		t.Fatal(err)
	}
	hotModel, err := LoadModel(writeModelFile(t, 10000))
	if err != nil {
		t.Fatal(err)
	}

	cold := NewBlendedEngine(rule, coldModel, Options{MLEnabled: true}, zap.NewNop()).Score(l)
	hot := NewBlendedEngine(rule, hotModel, Options{MLEnabled: true}, zap.NewNop()).Score(l)

	ruleScore := rule.Score(l)
	modelScore := coldModel.Score(l)
	if !(ruleScore < cold && cold < hot && hot < modelScore) {
		t.Fatalf("expected rule(%d) < cold(%d) < hot(%d) < model(%d)", ruleScore, cold, hot, modelScore)
	}
}

func TestBlendedScoreStaysInBounds(t *testing.T) {
	model, err := LoadModel(writeModelFile(t, 10000))
	if err != nil {
		t.Fatal(err)
	}
	e := NewBlendedEngine(NewRuleEngine(), model, Options{MLEnabled: true}, zap.NewNop())

	for _, l := range []*lead.Lead{
		{},
		{Description: "short"},
		{Description: "A very detailed description of the job with plenty of words to push features toward one.", BudgetTier: lead.BudgetOver50k},
	} {
		if s := e.Score(l); s < 0 || s > 100 {
			t.Fatalf("blended score out of bounds: %d", s)
		}
	}
}
