package quality

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"leadmarket/internal/domain/lead"
)

type stubModel struct {
	score int
	ok    bool
}

func (s stubModel) ModelScore(_ *lead.Lead) (int, bool) { return s.score, s.ok }

type stubCounter struct {
	n   int64
	err error
}

func (s stubCounter) CountRecentByClient(_ context.Context, _ uuid.UUID, _ string, _ time.Time, _ uuid.UUID) (int64, error) {
	return s.n, s.err
}

func testConfig() Config {
	return Config{
		MinScore:          30,
		MinModelScore:     40,
		MinDescriptionLen: 20,
		DuplicateWindow:   24 * time.Hour,
		DisposableDomains: []string{"mailinator.com", "tempmail.com"},
	}
}

func goodLead() *lead.Lead {
	return &lead.Lead{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		Category:     "plumbing",
		Description:  "Hot water system stopped working this morning, need a licensed plumber to take a look.",
		ContactEmail: "client@gmail.com",
		QualityScore: 65,
		CreatedAt:    time.Now(),
	}
}

func TestGatePassesCleanLead(t *testing.T) {
	g := NewGate(testConfig(), nil, stubCounter{}, zap.NewNop())

	v := g.Evaluate(context.Background(), goodLead())
	assert.True(t, v.Passed)
	assert.Empty(t, v.Reason)
}

func TestGateRejectsLowScore(t *testing.T) {
	g := NewGate(testConfig(), nil, stubCounter{}, zap.NewNop())

	l := goodLead()
	l.QualityScore = 25
	v := g.Evaluate(context.Background(), l)
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonLowScore, v.Reason)
}

func TestGateRejectsShortDescription(t *testing.T) {
	g := NewGate(testConfig(), nil, stubCounter{}, zap.NewNop())

	l := goodLead()
	l.Description = "fix my tap"
	v := g.Evaluate(context.Background(), l)
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonTooShort, v.Reason)
}

func TestGateRejectsGibberish(t *testing.T) {
	g := NewGate(testConfig(), nil, stubCounter{}, zap.NewNop())

	cases := map[string]string{
		"repeated word":  "asdf asdf asdf asdf asdf test",
		"low variety":    "aaaa abab aaab aaaa baba abab",
		"one giant word": "wordone asdkjhasdkjhasdkjhasdkjhasdfkjahsdkfjhaskdjfhaksjdf another",
	}
	for name, desc := range cases {
		l := goodLead()
		l.Description = desc
		v := g.Evaluate(context.Background(), l)
		assert.False(t, v.Passed, name)
		assert.Equal(t, ReasonGibberish, v.Reason, name)
	}
}

func TestGateRejectsDisposableEmail(t *testing.T) {
	g := NewGate(testConfig(), nil, stubCounter{}, zap.NewNop())

	l := goodLead()
	l.ContactEmail = "throwaway@Mailinator.com"
	v := g.Evaluate(context.Background(), l)
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonDisposableContact, v.Reason)
}

func TestGateRejectsLowModelScore(t *testing.T) {
	g := NewGate(testConfig(), stubModel{score: 30, ok: true}, stubCounter{}, zap.NewNop())

	v := g.Evaluate(context.Background(), goodLead())
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonLowModelScore, v.Reason)
}

func TestGateSkipsModelRuleWithoutModel(t *testing.T) {
	g := NewGate(testConfig(), stubModel{ok: false}, stubCounter{}, zap.NewNop())

	v := g.Evaluate(context.Background(), goodLead())
	assert.True(t, v.Passed)
}

func TestGateRejectsDuplicateSubmission(t *testing.T) {
	g := NewGate(testConfig(), nil, stubCounter{n: 1}, zap.NewNop())

	v := g.Evaluate(context.Background(), goodLead())
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonDuplicate, v.Reason)
}

func TestGateSkipsDuplicateRuleOnStoreError(t *testing.T) {
	g := NewGate(testConfig(), nil, stubCounter{err: errors.New("db down")}, zap.NewNop())

	// A failing lookup downgrades to a skipped rule, never a rejection.
	v := g.Evaluate(context.Background(), goodLead())
	assert.True(t, v.Passed)
}
