package pricing

import (
	"math"
	"time"

	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"
)

// Credit bonuses added on top of the urgency-scaled base.
const (
	qualityBonusHigh = 2 // quality score >= 80
	qualityBonusMid  = 1 // quality score >= 60

	budgetBonusLarge  = 3 // 15k_50k and over_50k
	budgetBonusMedium = 2 // 5k_15k
	budgetBonusSmall  = 1 // 1k_5k

	propertyBonusIndustrial = 2
	propertyBonusCommercial = 1

	intentBonusReady    = 2
	intentBonusPlanning = 1
)

func urgencyMultiplier(u lead.Urgency) float64 {
	switch u {
	case lead.UrgencyUrgent:
		return 1.5
	case lead.UrgencyThisWeek:
		return 1.3
	case lead.UrgencyThisMonth:
		return 1.1
	default:
		return 1.0
	}
}

// categoryMultipliers scale prices per trade; every entry is >= 1.0 so the
// table can only raise a price, never discount it.
var categoryMultipliers = map[string]float64{
	"plumbing":      1.2,
	"electrical":    1.2,
	"roofing":       1.3,
	"hvac":          1.25,
	"renovations":   1.4,
	"solar":         1.3,
	"concreting":    1.15,
	"flooring":      1.1,
	"landscaping":   1.1,
	"pool_services": 1.15,
	"locksmith":     1.1,
}

// MarketSnapshot is the read-only market state a price depends on. Batch
// pricing computes it once and reuses it for every lead in the batch.
type MarketSnapshot struct {
	At time.Time
}

// DemandMultiplier is the time-of-day/week factor: weekday business hours
// carry full demand, evenings slightly less, weekends the least.
func (s MarketSnapshot) DemandMultiplier() float64 {
	wd := s.At.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return 0.9
	}
	if h := s.At.Hour(); h >= 8 && h < 18 {
		return 1.1
	}
	return 1.0
}

type Config struct {
	BasePrice int
	Floor     int
	Ceiling   int
}

// Engine computes the credit price to unlock a lead's contact details. Price
// is a pure function of the lead, the optional provider, and the market
// snapshot; it never mutates either side.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = 2
	}
	if cfg.Floor <= 0 {
		cfg.Floor = 1
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = 20
	}
	return &Engine{cfg: cfg}
}

// Price returns the unlock price in whole credits, clamped to [floor, ceiling].
// p may be nil when no provider is known yet (allocation-time price display).
func (e *Engine) Price(l *lead.Lead, p *provider.Provider, snap MarketSnapshot) int {
	price := float64(e.cfg.BasePrice) * urgencyMultiplier(l.Urgency)

	switch {
	case l.QualityScore >= 80:
		price += qualityBonusHigh
	case l.QualityScore >= 60:
		price += qualityBonusMid
	}

	switch l.BudgetTier {
	case lead.BudgetOver50k, lead.Budget15kTo50k:
		price += budgetBonusLarge
	case lead.Budget5kTo15k:
		price += budgetBonusMedium
	case lead.Budget1kTo5k:
		price += budgetBonusSmall
	}

	switch l.PropertyType {
	case lead.PropertyIndustrial:
		price += propertyBonusIndustrial
	case lead.PropertyCommercial:
		price += propertyBonusCommercial
	}

	switch l.Intent {
	case lead.IntentReadyToHire:
		price += intentBonusReady
	case lead.IntentPlanning:
		price += intentBonusPlanning
	}

	if m, ok := categoryMultipliers[l.Category]; ok {
		price *= m
	}

	if p != nil {
		price *= p.Tier.Discount()
	}

	price *= snap.DemandMultiplier()

	return e.clamp(int(math.Round(price)))
}

// PriceBatch prices many leads for one provider against a single snapshot, so
// shared inputs are derived exactly once per batch.
func (e *Engine) PriceBatch(leads []lead.Lead, p *provider.Provider, at time.Time) map[string]int {
	snap := MarketSnapshot{At: at}
	out := make(map[string]int, len(leads))
	for i := range leads {
		out[leads[i].ID.String()] = e.Price(&leads[i], p, snap)
	}
	return out
}

func (e *Engine) clamp(v int) int {
	if v < e.cfg.Floor {
		return e.cfg.Floor
	}
	if v > e.cfg.Ceiling {
		return e.cfg.Ceiling
	}
	return v
}
