package allocation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssignmentStatus is the per-assignment state machine:
// assigned → viewed → unlocked → contacted → quoted → won|lost|no_response.
type AssignmentStatus string

const (
	StatusAssigned   AssignmentStatus = "assigned"
	StatusViewed     AssignmentStatus = "viewed"
	StatusUnlocked   AssignmentStatus = "unlocked"
	StatusContacted  AssignmentStatus = "contacted"
	StatusQuoted     AssignmentStatus = "quoted"
	StatusWon        AssignmentStatus = "won"
	StatusLost       AssignmentStatus = "lost"
	StatusNoResponse AssignmentStatus = "no_response"
)

var transitions = map[AssignmentStatus][]AssignmentStatus{
	StatusAssigned:  {StatusViewed, StatusUnlocked},
	StatusViewed:    {StatusUnlocked},
	StatusUnlocked:  {StatusContacted, StatusNoResponse},
	StatusContacted: {StatusQuoted, StatusNoResponse},
	StatusQuoted:    {StatusWon, StatusLost, StatusNoResponse},
}

// CanTransitionTo reports whether next is a legal step from s.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active assignment states count toward a provider's active-lead cap.
func (s AssignmentStatus) IsActive() bool {
	switch s {
	case StatusWon, StatusLost, StatusNoResponse:
		return false
	default:
		return true
	}
}

// Assignment links one provider to one lead. The (lead_id, provider_id)
// unique index is the exclusivity constraint that makes concurrent allocation
// passes safe.
type Assignment struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	LeadID     uuid.UUID `json:"lead_id" gorm:"type:uuid;not null;uniqueIndex:idx_assignments_lead_provider;index"`
	ProviderID uuid.UUID `json:"provider_id" gorm:"type:uuid;not null;uniqueIndex:idx_assignments_lead_provider;index"`

	Status AssignmentStatus `json:"status" gorm:"type:varchar(16);not null;default:'assigned';index"`

	// Price is fixed at allocation time and never recomputed.
	Price              int     `json:"price" gorm:"not null"`
	CompatibilityScore float64 `json:"compatibility_score" gorm:"not null;default:0"`

	AssignedAt time.Time  `json:"assigned_at"`
	ViewedAt   *time.Time `json:"viewed_at,omitempty"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Assignment) TableName() string { return "assignments" }

func (a *Assignment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	return nil
}

// UnlockRecord is the immutable ledger entry proving a successful charge. Its
// existence is the single source of truth for "already charged": unlock checks
// it first, which is what makes the operation idempotent.
type UnlockRecord struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	LeadID        uuid.UUID `json:"lead_id" gorm:"type:uuid;not null;uniqueIndex:idx_unlocks_lead_provider"`
	ProviderID    uuid.UUID `json:"provider_id" gorm:"type:uuid;not null;uniqueIndex:idx_unlocks_lead_provider;index"`
	AssignmentID  uuid.UUID `json:"assignment_id" gorm:"type:uuid;not null"`
	TransactionID uuid.UUID `json:"transaction_id" gorm:"type:uuid;not null"`
	Amount        int64     `json:"amount" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (UnlockRecord) TableName() string { return "unlock_records" }

func (u *UnlockRecord) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
