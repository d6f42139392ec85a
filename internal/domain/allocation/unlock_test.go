package allocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"leadmarket/internal/domain/credit"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"
)

func TestUnlockRevealsContactAndChargesOnce(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	p := seedProvider(t, db, "buyer", nil)
	l := seedLead(t, db, nil)

	res, err := engine.Unlock(ctx, l.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyUnlocked)
	assert.Equal(t, "Test Client", res.Contact.Name)
	assert.Equal(t, "client@example.com", res.Contact.Email)
	assert.Greater(t, res.Price, 0)

	var fresh provider.Provider
	require.NoError(t, db.First(&fresh, "id = ?", p.ID).Error)
	assert.Equal(t, p.CreditBalance-int64(res.Price), fresh.CreditBalance)

	var asg Assignment
	require.NoError(t, db.First(&asg, "lead_id = ? AND provider_id = ?", l.ID, p.ID).Error)
	assert.Equal(t, StatusUnlocked, asg.Status)
	assert.NotNil(t, asg.UnlockedAt)

	var txns int64
	require.NoError(t, db.Model(&credit.Transaction{}).
		Where("provider_id = ? AND type = ?", p.ID, credit.TransactionTypeDebit).
		Count(&txns).Error)
	assert.EqualValues(t, 1, txns)
}

func TestUnlockIsIdempotent(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	p := seedProvider(t, db, "repeat-buyer", nil)
	l := seedLead(t, db, nil)

	first, err := engine.Unlock(ctx, l.ID, p.ID)
	require.NoError(t, err)

	second, err := engine.Unlock(ctx, l.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyUnlocked)
	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, first.AssignmentID, second.AssignmentID)
	assert.Equal(t, first.Contact, second.Contact)

	// The replay must not charge again.
	var fresh provider.Provider
	require.NoError(t, db.First(&fresh, "id = ?", p.ID).Error)
	assert.Equal(t, p.CreditBalance-int64(first.Price), fresh.CreditBalance)

	var txns int64
	require.NoError(t, db.Model(&credit.Transaction{}).
		Where("provider_id = ? AND type = ?", p.ID, credit.TransactionTypeDebit).
		Count(&txns).Error)
	assert.EqualValues(t, 1, txns)

	var records int64
	require.NoError(t, db.Model(&UnlockRecord{}).
		Where("lead_id = ? AND provider_id = ?", l.ID, p.ID).
		Count(&records).Error)
	assert.EqualValues(t, 1, records)
}

func TestUnlockInsufficientCreditsRollsBack(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	p := seedProvider(t, db, "broke-buyer", func(p *provider.Provider) {
		p.CreditBalance = 1
	})
	l := seedLead(t, db, nil)

	// Assign first so the refusal happens at the debit, not at eligibility.
	_, err := engine.Allocate(ctx, l.ID)
	require.NoError(t, err)

	_, err = engine.Unlock(ctx, l.ID, p.ID)
	var refusal *UnlockError
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, ReasonInsufficientCredits, refusal.Reason)
	assert.Greater(t, refusal.Required, refusal.Available)
	assert.EqualValues(t, 1, refusal.Available)

	// Nothing committed: balance intact, no unlock record, assignment stays.
	var fresh provider.Provider
	require.NoError(t, db.First(&fresh, "id = ?", p.ID).Error)
	assert.EqualValues(t, 1, fresh.CreditBalance)

	var records int64
	require.NoError(t, db.Model(&UnlockRecord{}).Where("provider_id = ?", p.ID).Count(&records).Error)
	assert.Zero(t, records)

	var asg Assignment
	require.NoError(t, db.First(&asg, "lead_id = ? AND provider_id = ?", l.ID, p.ID).Error)
	assert.Equal(t, StatusAssigned, asg.Status)
}

func TestUnlockBrowseAndBuyCreatesAssignment(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	p := seedProvider(t, db, "browser", nil)
	l := seedLead(t, db, nil)

	res, err := engine.Unlock(ctx, l.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyUnlocked)

	var fresh lead.Lead
	require.NoError(t, db.First(&fresh, "id = ?", l.ID).Error)
	assert.Equal(t, 1, fresh.AssignedCount)
	assert.Equal(t, lead.StatusAllocated, fresh.Status)
}

func TestUnlockRefusesIneligibleProvider(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	p := seedProvider(t, db, "roofer", func(p *provider.Provider) {
		p.Categories = []string{"roofing"}
	})
	l := seedLead(t, db, nil)

	_, err := engine.Unlock(ctx, l.ID, p.ID)
	var refusal *UnlockError
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, ReasonNotEligible, refusal.Reason)
}

func TestUnlockRefusesFullLeadWithoutAssignment(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	winner := seedProvider(t, db, "winner", nil)
	latecomer := seedProvider(t, db, "latecomer", nil)
	l := seedLead(t, db, func(l *lead.Lead) {
		l.MaxProviders = 1
	})

	_, err := engine.Unlock(ctx, l.ID, winner.ID)
	require.NoError(t, err)

	_, err = engine.Unlock(ctx, l.ID, latecomer.ID)
	var refusal *UnlockError
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, ReasonNotAvailable, refusal.Reason)
}

func TestUnlockedProviderKeepsAccessAfterLeadFills(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	p := seedProvider(t, db, "early-bird", nil)
	l := seedLead(t, db, func(l *lead.Lead) {
		l.MaxProviders = 1
	})

	first, err := engine.Unlock(ctx, l.ID, p.ID)
	require.NoError(t, err)

	// The lead is full now, but the provider who paid can still replay.
	replay, err := engine.Unlock(ctx, l.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyUnlocked)
	assert.Equal(t, first.Contact, replay.Contact)
}

func TestProgressAssignmentTransitions(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	p := seedProvider(t, db, "worker", nil)
	l := seedLead(t, db, nil)

	res, err := engine.Unlock(ctx, l.ID, p.ID)
	require.NoError(t, err)

	asg, err := engine.ProgressAssignment(ctx, res.AssignmentID, p.ID, StatusContacted)
	require.NoError(t, err)
	assert.Equal(t, StatusContacted, asg.Status)

	asg, err = engine.ProgressAssignment(ctx, res.AssignmentID, p.ID, StatusQuoted)
	require.NoError(t, err)
	assert.Equal(t, StatusQuoted, asg.Status)

	asg, err = engine.ProgressAssignment(ctx, res.AssignmentID, p.ID, StatusWon)
	require.NoError(t, err)
	assert.Equal(t, StatusWon, asg.Status)

	// Terminal states accept nothing further.
	_, err = engine.ProgressAssignment(ctx, res.AssignmentID, p.ID, StatusLost)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestProgressAssignmentRejectsSkippedStates(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	p := seedProvider(t, db, "skipper", nil)
	l := seedLead(t, db, nil)

	res, err := engine.Unlock(ctx, l.ID, p.ID)
	require.NoError(t, err)

	// unlocked → quoted skips contacted.
	_, err = engine.ProgressAssignment(ctx, res.AssignmentID, p.ID, StatusQuoted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// The unlock transition is owned by Unlock.
	_, err = engine.ProgressAssignment(ctx, res.AssignmentID, p.ID, StatusUnlocked)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestProgressAssignmentChecksOwnership(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	owner := seedProvider(t, db, "owner", nil)
	other := seedProvider(t, db, "other", nil)
	l := seedLead(t, db, nil)

	res, err := engine.Unlock(ctx, l.ID, owner.ID)
	require.NoError(t, err)

	_, err = engine.ProgressAssignment(ctx, res.AssignmentID, other.ID, StatusContacted)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestUnlockReportsContentionAsTryAgain(t *testing.T) {
	cases := []struct {
		name string
		err  error
		busy bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset"), false},
		{"not found", gorm.ErrRecordNotFound, false},
		{"raced sentinel", errUnlockRaced, true},
		{"wrapped raced sentinel", fmt.Errorf("unlock: %w", errUnlockRaced), true},
		{"postgres lock timeout", &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}, true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			refusal := asBusyRefusal(tc.err)
			if !tc.busy {
				assert.Nil(t, refusal)
				return
			}
			require.NotNil(t, refusal)
			assert.Equal(t, ReasonTryAgain, refusal.Reason)
			assert.NotEmpty(t, refusal.Message)
		})
	}
}

func TestConcurrentUnlockChargesOnce(t *testing.T) {
	engine, db := setupTestEngine(t)
	ctx := context.Background()

	p := seedProvider(t, db, "racing-buyer", nil)
	l := seedLead(t, db, nil)
	_, err := engine.Allocate(ctx, l.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*UnlockResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Unlock(ctx, l.ID, p.ID)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].AssignmentID, results[1].AssignmentID)
	assert.Equal(t, results[0].Price, results[1].Price)
	assert.Equal(t, results[0].Contact, results[1].Contact)

	var records int64
	require.NoError(t, db.Model(&UnlockRecord{}).
		Where("lead_id = ? AND provider_id = ?", l.ID, p.ID).
		Count(&records).Error)
	assert.EqualValues(t, 1, records)

	var txns int64
	require.NoError(t, db.Model(&credit.Transaction{}).
		Where("provider_id = ? AND type = ?", p.ID, credit.TransactionTypeDebit).
		Count(&txns).Error)
	assert.EqualValues(t, 1, txns)

	var fresh provider.Provider
	require.NoError(t, db.First(&fresh, "id = ?", p.ID).Error)
	assert.Equal(t, p.CreditBalance-int64(results[0].Price), fresh.CreditBalance)
}
