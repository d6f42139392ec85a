package intake

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"leadmarket/internal/domain/allocation"
	"leadmarket/internal/domain/credit"
	"leadmarket/internal/domain/geo"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/pricing"
	"leadmarket/internal/domain/provider"
	"leadmarket/internal/domain/quality"
	"leadmarket/internal/domain/scoring"
)

func setupIntake(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:intake_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&lead.Lead{},
		&provider.Provider{},
		&allocation.Assignment{},
		&allocation.UnlockRecord{},
		&credit.Transaction{},
	))

	leads := lead.NewRepository(db)
	scorer := scoring.NewBlendedEngine(scoring.NewRuleEngine(), nil, scoring.Options{}, zap.NewNop())
	gate := quality.NewGate(quality.Config{
		MinScore:          30,
		MinModelScore:     40,
		MinDescriptionLen: 20,
		DuplicateWindow:   24 * time.Hour,
		DisposableDomains: []string{"mailinator.com"},
	}, scorer, leads, zap.NewNop())
	engine := allocation.NewEngine(
		db,
		provider.NewRepository(db),
		geo.NewMatcher(),
		scorer,
		pricing.NewEngine(pricing.Config{}),
		credit.NewLedger(db),
		nil,
		zap.NewNop(),
		allocation.Config{},
	)

	svc := NewService(leads, scorer, gate, engine, nil, Config{
		DefaultMaxProviders: 3,
		LeadTTL:             30 * 24 * time.Hour,
	}, zap.NewNop())
	return svc, db
}

func submitRequest() *SubmitLeadRequest {
	return &SubmitLeadRequest{
		Category:     "plumbing",
		Title:        "Hot water system replacement",
		Description:  "Our hot water system is leaking and needs a full replacement, looking for a licensed plumber to quote this week.",
		City:         "Sydney",
		ContactName:  "Sam Taylor",
		ContactEmail: "sam@example.com",
		ContactPhone: "+61 400 555 666",
		BudgetTier:   "1k_5k",
		Urgency:      "this_week",
		Intent:       "ready_to_hire",
	}
}

func TestSubmitVerifiesAndAllocates(t *testing.T) {
	svc, db := setupIntake(t)
	ctx := context.Background()

	p := &provider.Provider{
		Name:               "Sydney Plumber",
		Email:              "p@test.local",
		Categories:         []string{"plumbing"},
		ServiceAreas:       []string{"Sydney"},
		VerificationStatus: provider.VerificationVerified,
		Tier:               provider.TierBasic,
		Rating:             4.5,
		ResponseTimeHours:  2,
		CreditBalance:      50,
	}
	require.NoError(t, db.Create(p).Error)

	clientID := uuid.New()
	l, err := svc.Submit(ctx, clientID, submitRequest())
	require.NoError(t, err)

	assert.Equal(t, lead.StatusAllocated, l.Status)
	assert.Equal(t, 1, l.AssignedCount)
	assert.GreaterOrEqual(t, l.QualityScore, 30)
	assert.Empty(t, l.RejectionReason)

	var asg allocation.Assignment
	require.NoError(t, db.First(&asg, "lead_id = ? AND provider_id = ?", l.ID, p.ID).Error)
	assert.Equal(t, allocation.StatusAssigned, asg.Status)
}

func TestSubmitWithNoProvidersStaysVerified(t *testing.T) {
	svc, _ := setupIntake(t)

	l, err := svc.Submit(context.Background(), uuid.New(), submitRequest())
	require.NoError(t, err)
	assert.Equal(t, lead.StatusVerified, l.Status)
	assert.Equal(t, 0, l.AssignedCount)
}

func TestSubmitPersistsGateRejection(t *testing.T) {
	svc, db := setupIntake(t)

	req := submitRequest()
	req.Description = "fix fix fix fix"
	req.BudgetTier = ""
	req.Urgency = ""
	req.Intent = ""

	l, err := svc.Submit(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	assert.Equal(t, lead.StatusPending, l.Status)
	assert.NotEmpty(t, l.RejectionReason)

	// Rejection is recorded on the stored row too, not just the return value.
	var stored lead.Lead
	require.NoError(t, db.First(&stored, "id = ?", l.ID).Error)
	assert.Equal(t, lead.StatusPending, stored.Status)
	assert.Equal(t, l.RejectionReason, stored.RejectionReason)
}

func TestSubmitRejectsDuplicateWithinWindow(t *testing.T) {
	svc, _ := setupIntake(t)
	ctx := context.Background()
	clientID := uuid.New()

	first, err := svc.Submit(ctx, clientID, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, lead.StatusVerified, first.Status)

	second, err := svc.Submit(ctx, clientID, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, lead.StatusPending, second.Status)
	assert.Equal(t, quality.ReasonDuplicate, second.RejectionReason)
}

func TestSubmitRejectsUnknownCategory(t *testing.T) {
	svc, _ := setupIntake(t)

	req := submitRequest()
	req.Category = "underwater-basket-weaving"
	_, err := svc.Submit(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, lead.ErrInvalidCategory)
}

func TestGetForClientEnforcesOwnership(t *testing.T) {
	svc, _ := setupIntake(t)
	ctx := context.Background()

	owner := uuid.New()
	l, err := svc.Submit(ctx, owner, submitRequest())
	require.NoError(t, err)

	got, err := svc.GetForClient(ctx, l.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	_, err = svc.GetForClient(ctx, l.ID, uuid.New())
	assert.ErrorIs(t, err, lead.ErrNotOwner)

	_, err = svc.GetForClient(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, lead.ErrLeadNotFound)
}
