package provider

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrProviderNotFound = errors.New("provider not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListVerified returns every verified provider. Category and geo filtering
// happen in the allocation engine: the category set lives in a JSON column,
// so membership is checked in memory over this bounded set.
func (r *Repository) ListVerified(ctx context.Context) ([]Provider, error) {
	var providers []Provider
	err := r.db.WithContext(ctx).
		Where("verification_status = ?", VerificationVerified).
		Order("id asc").
		Find(&providers).Error
	return providers, err
}
