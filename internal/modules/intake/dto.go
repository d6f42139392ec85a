package intake

import "leadmarket/internal/domain/lead"

// SubmitLeadRequest is the public intake payload. Client identity comes from
// the auth token, never the body.
type SubmitLeadRequest struct {
	Category    string `json:"category" binding:"required" validate:"required"`
	Title       string `json:"title" binding:"required" validate:"required,max=255"`
	Description string `json:"description" binding:"required" validate:"required"`

	Suburb    string   `json:"suburb" validate:"max=128"`
	City      string   `json:"city" validate:"max=128"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`

	ContactName  string `json:"contact_name" binding:"required" validate:"required,max=128"`
	ContactEmail string `json:"contact_email" binding:"required" validate:"required,email"`
	ContactPhone string `json:"contact_phone" validate:"max=32"`

	BudgetTier   string `json:"budget_tier" validate:"omitempty,oneof=no_budget under_1k 1k_5k 5k_15k 15k_50k over_50k"`
	Urgency      string `json:"urgency" validate:"omitempty,oneof=urgent this_week this_month flexible"`
	Intent       string `json:"intent" validate:"omitempty,oneof=ready_to_hire planning comparing researching"`
	PropertyType string `json:"property_type" validate:"omitempty,oneof=residential commercial industrial"`
	MinJobValue  int64  `json:"min_job_value" validate:"gte=0"`
}

// SubmitLeadResponse reports the outcome of intake, including a gate
// rejection, which is a status, not an error.
type SubmitLeadResponse struct {
	LeadID          string      `json:"lead_id"`
	Status          lead.Status `json:"status"`
	QualityScore    int         `json:"quality_score"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	AssignedCount   int         `json:"assigned_count"`
}
