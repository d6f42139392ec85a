package lead

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status follows the lead lifecycle. Gate failures return a lead to pending
// with a rejection reason; allocation moves verified leads forward.
type Status string

const (
	StatusPending        Status = "pending"
	StatusVerifying      Status = "verifying"
	StatusVerified       Status = "verified"
	StatusAllocated      Status = "allocated"
	StatusFullyAllocated Status = "fully_allocated"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
)

// BudgetTier is an ordered enum; Rank gives the ordering for scoring/pricing.
type BudgetTier string

const (
	BudgetNone     BudgetTier = "no_budget"
	BudgetUnder1k  BudgetTier = "under_1k"
	Budget1kTo5k   BudgetTier = "1k_5k"
	Budget5kTo15k  BudgetTier = "5k_15k"
	Budget15kTo50k BudgetTier = "15k_50k"
	BudgetOver50k  BudgetTier = "over_50k"
)

func (b BudgetTier) Rank() int {
	switch b {
	case BudgetUnder1k:
		return 1
	case Budget1kTo5k:
		return 2
	case Budget5kTo15k:
		return 3
	case Budget15kTo50k:
		return 4
	case BudgetOver50k:
		return 5
	default:
		return 0
	}
}

type Urgency string

const (
	UrgencyUrgent    Urgency = "urgent"
	UrgencyThisWeek  Urgency = "this_week"
	UrgencyThisMonth Urgency = "this_month"
	UrgencyFlexible  Urgency = "flexible"
)

func (u Urgency) Rank() int {
	switch u {
	case UrgencyUrgent:
		return 3
	case UrgencyThisWeek:
		return 2
	case UrgencyThisMonth:
		return 1
	default:
		return 0
	}
}

type Intent string

const (
	IntentReadyToHire Intent = "ready_to_hire"
	IntentPlanning    Intent = "planning"
	IntentComparing   Intent = "comparing"
	IntentResearching Intent = "researching"
)

func (i Intent) Rank() int {
	switch i {
	case IntentReadyToHire:
		return 3
	case IntentPlanning:
		return 2
	case IntentComparing:
		return 1
	default:
		return 0
	}
}

type PropertyType string

const (
	PropertyResidential PropertyType = "residential"
	PropertyCommercial  PropertyType = "commercial"
	PropertyIndustrial  PropertyType = "industrial"
)

// Lead is a client's service request awaiting provider allocation.
type Lead struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID uuid.UUID `json:"client_id" gorm:"type:uuid;not null;index:idx_leads_client_category"`
	Category string    `json:"category" gorm:"type:varchar(64);not null;index;index:idx_leads_client_category"`

	Title       string `json:"title" gorm:"type:varchar(255);not null"`
	Description string `json:"description" gorm:"type:text;not null"`

	Suburb    string   `json:"suburb" gorm:"type:varchar(128)"`
	City      string   `json:"city" gorm:"type:varchar(128)"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// Contact details stay hidden from providers until they unlock the lead.
	ContactName  string `json:"-" gorm:"type:varchar(128)"`
	ContactEmail string `json:"-" gorm:"type:varchar(255)"`
	ContactPhone string `json:"-" gorm:"type:varchar(32)"`

	BudgetTier   BudgetTier   `json:"budget_tier" gorm:"type:varchar(16);not null;default:'no_budget'"`
	Urgency      Urgency      `json:"urgency" gorm:"type:varchar(16);not null;default:'flexible'"`
	Intent       Intent       `json:"intent" gorm:"type:varchar(16);not null;default:'researching'"`
	PropertyType PropertyType `json:"property_type" gorm:"type:varchar(16)"`
	MinJobValue  int64        `json:"min_job_value" gorm:"not null;default:0"`

	QualityScore    int    `json:"quality_score" gorm:"not null;default:0"`
	Status          Status `json:"status" gorm:"type:varchar(24);not null;default:'pending';index"`
	RejectionReason string `json:"rejection_reason,omitempty" gorm:"type:varchar(64)"`

	MaxProviders  int `json:"max_providers" gorm:"not null;default:3"`
	AssignedCount int `json:"assigned_count" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

func (Lead) TableName() string { return "leads" }

func (l *Lead) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// IsAvailable reports whether the lead can still accept assignments.
func (l *Lead) IsAvailable(now time.Time) bool {
	if l.Status != StatusVerified && l.Status != StatusAllocated {
		return false
	}
	if l.AssignedCount >= l.MaxProviders {
		return false
	}
	return now.Before(l.ExpiresAt)
}

func (l *Lead) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

func (l *Lead) RemainingSlots() int {
	if n := l.MaxProviders - l.AssignedCount; n > 0 {
		return n
	}
	return 0
}
