package scoring

import (
	"strings"
	"time"

	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"
)

// Point values for the additive rule score.
const (
	scoreBase = 20

	scoreLongDescription  = 20 // >= 200 chars
	scoreShortDescription = 10 // >= 50 chars
	scoreTitle            = 5  // >= 10 chars
	scorePerBudgetRank    = 4  // x0..x5
	scorePerUrgencyRank   = 5  // x0..x3
	scorePerIntentRank    = 5  // x0..x3
	scoreCoordinates      = 5
	scoreKeyword          = 5
	scorePremiumSuburb    = 5
	scoreBusinessHours    = 5
)

// intentKeywords in the description signal a client who is ready to buy.
var intentKeywords = []string{"quote", "asap", "urgent", "licensed", "insured", "start date"}

// premiumSuburbs get a small boost: jobs there historically convert better.
var premiumSuburbs = map[string]bool{
	"mosman":           true,
	"double bay":       true,
	"vaucluse":         true,
	"toorak":           true,
	"brighton":         true,
	"south yarra":      true,
	"ascot":            true,
	"cottesloe":        true,
	"peppermint grove": true,
}

// RuleEngine is the always-available deterministic scorer.
type RuleEngine struct{}

func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

func (e *RuleEngine) Score(l *lead.Lead) int {
	score := scoreBase

	switch dl := len(strings.TrimSpace(l.Description)); {
	case dl >= 200:
		score += scoreLongDescription
	case dl >= 50:
		score += scoreShortDescription
	}

	if len(strings.TrimSpace(l.Title)) >= 10 {
		score += scoreTitle
	}

	score += l.BudgetTier.Rank() * scorePerBudgetRank
	score += l.Urgency.Rank() * scorePerUrgencyRank
	score += l.Intent.Rank() * scorePerIntentRank

	if l.HasCoordinates() {
		score += scoreCoordinates
	}

	desc := strings.ToLower(l.Description)
	for _, kw := range intentKeywords {
		if strings.Contains(desc, kw) {
			score += scoreKeyword
			break
		}
	}

	if premiumSuburbs[strings.ToLower(strings.TrimSpace(l.Suburb))] {
		score += scorePremiumSuburb
	}

	if isBusinessHours(l.CreatedAt) {
		score += scoreBusinessHours
	}

	return clampScore(score)
}

// ConversionProbability estimates how likely this provider is to win the job,
// from the provider's track record and the lead's buying signals.
func (e *RuleEngine) ConversionProbability(l *lead.Lead, p *provider.Provider) float64 {
	prob := 0.15

	prob += 0.15 * (p.Rating / 5.0)
	prob += 0.10 * float64(p.Tier.Weight()) / 3.0
	prob += 0.10 * responsivenessFactor(p.ResponseTimeHours)
	prob += 0.15 * float64(l.Intent.Rank()) / 3.0
	prob += 0.10 * float64(l.Urgency.Rank()) / 3.0
	prob += 0.10 * float64(l.BudgetTier.Rank()) / 5.0
	prob += 0.15 * float64(clampScore(l.QualityScore)) / 100.0

	return clamp01(prob)
}

// responsivenessFactor approaches 1 for providers who answer within the hour
// and decays toward 0 for multi-day responders.
func responsivenessFactor(hours float64) float64 {
	if hours <= 0 {
		return 1
	}
	return 1 / (1 + hours/12)
}

func isBusinessHours(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	h := t.Hour()
	return h >= 9 && h < 17
}
