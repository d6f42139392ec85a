package quality

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadmarket/internal/domain/lead"
)

// Rejection reason codes written onto the lead. They are status metadata for
// manual review, never hard errors.
const (
	ReasonLowScore          = "low_score"
	ReasonTooShort          = "too_short"
	ReasonGibberish         = "gibberish"
	ReasonDisposableContact = "disposable_contact"
	ReasonLowModelScore     = "low_model_score"
	ReasonDuplicate         = "duplicate"
)

// Verdict is the gate's outcome. Reason is set only when Passed is false.
type Verdict struct {
	Passed bool
	Reason string
}

func pass() Verdict { return Verdict{Passed: true} }

func fail(reason string) Verdict { return Verdict{Reason: reason} }

// ModelScorer is the optional model-backed layer. ok=false means no model is
// loaded and the rule is skipped, not failed.
type ModelScorer interface {
	ModelScore(l *lead.Lead) (int, bool)
}

// RecentLeadCounter is the duplicate-detection query the gate needs from the
// lead store.
type RecentLeadCounter interface {
	CountRecentByClient(ctx context.Context, clientID uuid.UUID, category string, since time.Time, excludeID uuid.UUID) (int64, error)
}

// Config holds the gate thresholds; see internal/config for the env defaults.
type Config struct {
	MinScore          int
	MinModelScore     int
	MinDescriptionLen int
	DuplicateWindow   time.Duration
	DisposableDomains []string
}

// Gate is the rule-based pre-filter that runs once per lead before matching.
type Gate struct {
	cfg        Config
	disposable map[string]bool
	model      ModelScorer
	leads      RecentLeadCounter
	logger     *zap.Logger
}

func NewGate(cfg Config, model ModelScorer, leads RecentLeadCounter, logger *zap.Logger) *Gate {
	disposable := make(map[string]bool, len(cfg.DisposableDomains))
	for _, d := range cfg.DisposableDomains {
		disposable[strings.ToLower(strings.TrimSpace(d))] = true
	}
	return &Gate{
		cfg:        cfg,
		disposable: disposable,
		model:      model,
		leads:      leads,
		logger:     logger,
	}
}

// Evaluate runs the hard rules in order; the first failure short-circuits.
// The lead's QualityScore must be set before calling. Evaluate never returns
// an error: a failing store lookup downgrades to a skipped rule so gating can
// never block lead persistence.
func (g *Gate) Evaluate(ctx context.Context, l *lead.Lead) Verdict {
	if l.QualityScore < g.cfg.MinScore {
		return fail(ReasonLowScore)
	}

	desc := strings.TrimSpace(l.Description)
	if len(desc) < g.cfg.MinDescriptionLen {
		return fail(ReasonTooShort)
	}

	if looksLikeGibberish(desc) {
		return fail(ReasonGibberish)
	}

	if domain := emailDomain(l.ContactEmail); domain != "" && g.disposable[domain] {
		return fail(ReasonDisposableContact)
	}

	if g.model != nil {
		if score, ok := g.model.ModelScore(l); ok && score < g.cfg.MinModelScore {
			return fail(ReasonLowModelScore)
		}
	}

	since := l.CreatedAt.Add(-g.cfg.DuplicateWindow)
	n, err := g.leads.CountRecentByClient(ctx, l.ClientID, l.Category, since, l.ID)
	if err != nil {
		g.logger.Warn("duplicate check failed, skipping rule",
			zap.String("lead_id", l.ID.String()), zap.Error(err))
	} else if n > 0 {
		return fail(ReasonDuplicate)
	}

	return pass()
}

// looksLikeGibberish flags text that reads like keyboard mashing: too few
// words, absurdly long words, almost no character variety, or one word
// dominating the token stream.
func looksLikeGibberish(text string) bool {
	words := strings.Fields(text)
	if len(words) < 3 {
		return true
	}

	totalLen := 0
	counts := make(map[string]int, len(words))
	for _, w := range words {
		totalLen += len(w)
		counts[strings.ToLower(w)]++
	}
	if float64(totalLen)/float64(len(words)) > 15 {
		return true
	}

	if len(text) >= 10 && distinctChars(text) < 4 {
		return true
	}

	for _, n := range counts {
		if n*2 > len(words) {
			return true
		}
	}

	return false
}

func distinctChars(s string) int {
	seen := make(map[rune]bool)
	for _, r := range strings.ToLower(s) {
		if r == ' ' {
			continue
		}
		seen[r] = true
	}
	return len(seen)
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
