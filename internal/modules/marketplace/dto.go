package marketplace

import (
	"time"

	"leadmarket/internal/domain/lead"
)

// AvailableLead is one row of the provider's browse feed: enough to decide
// whether to pay, nothing that identifies the client.
type AvailableLead struct {
	LeadID       string          `json:"lead_id"`
	Category     string          `json:"category"`
	Title        string          `json:"title"`
	Suburb       string          `json:"suburb,omitempty"`
	City         string          `json:"city,omitempty"`
	BudgetTier   lead.BudgetTier `json:"budget_tier"`
	Urgency      lead.Urgency    `json:"urgency"`
	QualityScore int             `json:"quality_score"`
	Price        int             `json:"price"`
	ClaimStatus  string          `json:"claim_status"`
	SlotsLeft    int             `json:"slots_left"`
	PostedAt     time.Time       `json:"posted_at"`
}

// ListFilters narrow the browse feed; they are part of the cache key.
type ListFilters struct {
	Category string `form:"category"`
	Limit    int    `form:"limit"`
}

type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required" validate:"required,gt=0"`
}

type ProgressRequest struct {
	Status string `json:"status" binding:"required" validate:"required,oneof=viewed contacted quoted won lost no_response"`
}
