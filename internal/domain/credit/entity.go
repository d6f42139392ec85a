package credit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TransactionTypeCredit = "CREDIT"
	TransactionTypeDebit  = "DEBIT"
	TransactionTypeRefund = "REFUND"
)

// Transaction records every balance movement on a provider account. Amount is
// always positive; Type carries the direction.
type Transaction struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProviderID uuid.UUID `json:"provider_id" gorm:"type:uuid;not null;index"`
	Amount     int64     `json:"amount" gorm:"not null"`
	Type       string    `json:"type" gorm:"type:varchar(16);not null;index;check:type IN ('CREDIT','DEBIT','REFUND')"`
	Reference  string    `json:"reference,omitempty" gorm:"type:varchar(128)"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Transaction) TableName() string { return "credit_transactions" }

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
