package provider

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationVerified  VerificationStatus = "verified"
	VerificationSuspended VerificationStatus = "suspended"
)

// Tier is the provider's subscription level. Higher tiers rank earlier in
// matching and pay less per unlock.
type Tier string

const (
	TierFree  Tier = "free"
	TierBasic Tier = "basic"
	TierPro   Tier = "pro"
	TierElite Tier = "elite"
)

// Weight orders tiers for candidate ranking.
func (t Tier) Weight() int {
	switch t {
	case TierElite:
		return 3
	case TierPro:
		return 2
	case TierBasic:
		return 1
	default:
		return 0
	}
}

// Discount is the multiplier applied to unlock prices for this tier.
func (t Tier) Discount() float64 {
	switch t {
	case TierElite:
		return 0.85
	case TierPro:
		return 0.90
	case TierBasic:
		return 0.95
	default:
		return 1.0
	}
}

// Provider is the read-only view of a service-provider account. The account
// subsystem owns registration and verification; this core only reads these
// rows, except for CreditBalance which the credit ledger mutates.
type Provider struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name  string    `json:"name" gorm:"type:varchar(128);not null"`
	Email string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`

	Categories   []string `json:"categories" gorm:"serializer:json"`
	ServiceAreas []string `json:"service_areas" gorm:"serializer:json"`

	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	TravelRadiusKm float64  `json:"travel_radius_km" gorm:"not null;default:0"`

	VerificationStatus VerificationStatus `json:"verification_status" gorm:"type:varchar(16);not null;default:'pending';index"`
	Tier               Tier               `json:"tier" gorm:"type:varchar(16);not null;default:'free'"`

	Rating            float64 `json:"rating" gorm:"not null;default:0"`
	ResponseTimeHours float64 `json:"response_time_hours" gorm:"not null;default:24"`

	CreditBalance  int64 `json:"credit_balance" gorm:"not null;default:0"`
	MinJobValue    int64 `json:"min_job_value" gorm:"not null;default:0"`
	MaxActiveLeads int   `json:"max_active_leads" gorm:"not null;default:0"` // 0 = unlimited

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Provider) TableName() string { return "providers" }

func (p *Provider) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Provider) IsVerified() bool {
	return p.VerificationStatus == VerificationVerified
}

func (p *Provider) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// ServesCategory does a case-insensitive membership check.
func (p *Provider) ServesCategory(slug string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(c, slug) {
			return true
		}
	}
	return false
}
