package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leadmarket/internal/domain/provider"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// InsufficientFundsError reports the exact shortfall so callers can surface
// required/available to the provider.
type InsufficientFundsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// Ledger is the subsystem of record for provider credit balances. Balances
// live on the provider row; every movement also writes a Transaction row.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Balance reads the current balance without locking.
func (l *Ledger) Balance(ctx context.Context, providerID uuid.UUID) (int64, error) {
	var p provider.Provider
	if err := l.db.WithContext(ctx).Select("credit_balance").Where("id = ?", providerID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, provider.ErrProviderNotFound
		}
		return 0, err
	}
	return p.CreditBalance, nil
}

// Credit tops up a provider's balance in its own transaction.
func (l *Ledger) Credit(ctx context.Context, providerID uuid.UUID, amount int64, reference string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var txn *Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = l.apply(tx, providerID, amount, TransactionTypeCredit, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// DebitTx debits inside a transaction owned by the caller, so the charge
// commits or rolls back together with whatever the caller pairs it with
// (the unlock record, the assignment transition). The provider row is locked
// for the duration of the check-and-decrement.
func (l *Ledger) DebitTx(tx *gorm.DB, providerID uuid.UUID, amount int64, reference string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.apply(tx, providerID, -amount, TransactionTypeDebit, reference)
}

// RefundTx returns credits inside a caller-owned transaction, e.g. when an
// assignment is revoked after a charge.
func (l *Ledger) RefundTx(tx *gorm.DB, providerID uuid.UUID, amount int64, reference string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.apply(tx, providerID, amount, TransactionTypeRefund, reference)
}

// ListTransactions returns a provider's movements, newest first.
func (l *Ledger) ListTransactions(ctx context.Context, providerID uuid.UUID, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var txns []Transaction
	err := l.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at desc").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// apply locks the provider row, moves the balance by delta (negative for
// debits), and records the transaction. The non-negative balance invariant is
// enforced here and nowhere else.
func (l *Ledger) apply(tx *gorm.DB, providerID uuid.UUID, delta int64, txnType, reference string) (*Transaction, error) {
	var p provider.Provider
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", providerID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, provider.ErrProviderNotFound
	}
	if err != nil {
		return nil, err
	}

	newBalance := p.CreditBalance + delta
	if newBalance < 0 {
		return nil, &InsufficientFundsError{Required: -delta, Available: p.CreditBalance}
	}

	if err := tx.Model(&provider.Provider{}).Where("id = ?", p.ID).
		Update("credit_balance", newBalance).Error; err != nil {
		return nil, err
	}

	amount := delta
	if amount < 0 {
		amount = -amount
	}
	txn := &Transaction{
		ProviderID: providerID,
		Amount:     amount,
		Type:       txnType,
		Reference:  reference,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}
