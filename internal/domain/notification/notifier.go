package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadmarket/internal/domain/lead"
)

// Match is one allocated provider in dispatch order.
type Match struct {
	ProviderID         uuid.UUID `json:"provider_id"`
	CompatibilityScore float64   `json:"compatibility_score"`
}

// Notifier receives allocation results for delivery. Transport (SMS, email,
// push) lives outside this core; implementations here only hand results over.
type Notifier interface {
	OnAllocated(ctx context.Context, l *lead.Lead, matches []Match)
}

// LogNotifier records allocations to the structured log. It stands in for the
// real delivery pipeline in development and tests.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OnAllocated(_ context.Context, l *lead.Lead, matches []Match) {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ProviderID.String()
	}
	n.logger.Info("lead allocated",
		zap.String("lead_id", l.ID.String()),
		zap.String("category", l.Category),
		zap.Int("matches", len(matches)),
		zap.Strings("provider_ids", ids),
	)
}
