package service_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/model"
	"github.com/phishguard/phishguard-backend/internal/service"
)

// --- Mock repositories ---

type mockTargetRepo struct {
	byToken map[string]*model.TargetContext
}

func (m *mockTargetRepo) ResolveToken(token string) (*model.TargetContext, error) {
	tc, ok := m.byToken[token]
	if !ok {
		return nil, appErrors.ErrTokenNotFound
	}
	return tc, nil
}

func (m *mockTargetRepo) PendingByCampaign(campaignID int) ([]*model.PendingTarget, error) {
	return nil, nil
}
func (m *mockTargetRepo) GetPending(targetID int) (*model.PendingTarget, error) { return nil, nil }
func (m *mockTargetRepo) MarkSent(targetID int, at time.Time) error             { return nil }
func (m *mockTargetRepo) MarkFailed(targetID int) error                         { return nil }

type mockEventRepo struct {
	logged map[string]bool
	err    error
}

func (m *mockEventRepo) LogOnce(targetID int, kind model.EventType, ip, ua string, at time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	key := fmt.Sprintf("%d/%s", targetID, kind)
	if m.logged[key] {
		return false, nil
	}
	m.logged[key] = true
	return true, nil
}

type mockDecisionRepo struct {
	recorded map[string]bool
}

func (m *mockDecisionRepo) RecordOnce(targetID int, decision string, at time.Time) (bool, error) {
	key := fmt.Sprintf("%d/%s", targetID, decision)
	if m.recorded[key] {
		return false, nil
	}
	m.recorded[key] = true
	return true, nil
}

type mockQuizRepo struct {
	attempts []*model.QuizAttempt
}

func (m *mockQuizRepo) Insert(targetID, score int, passed bool, at time.Time) (*model.QuizAttempt, error) {
	attempt := &model.QuizAttempt{
		ID:        len(m.attempts) + 1,
		TargetID:  targetID,
		Score:     score,
		Passed:    passed,
		CreatedAt: at,
	}
	m.attempts = append(m.attempts, attempt)
	return attempt, nil
}

type mockAwarenessRepo struct {
	views map[int]bool
	err   error
}

func (m *mockAwarenessRepo) LogFirstView(targetID int, at time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.views[targetID] {
		return false, nil
	}
	m.views[targetID] = true
	return true, nil
}

func newFunnelService() (*service.FunnelService, *mockEventRepo, *mockDecisionRepo, *mockQuizRepo, *mockAwarenessRepo) {
	events := &mockEventRepo{logged: map[string]bool{}}
	decisions := &mockDecisionRepo{recorded: map[string]bool{}}
	quiz := &mockQuizRepo{}
	awareness := &mockAwarenessRepo{views: map[int]bool{}}

	svc := &service.FunnelService{
		TargetRepo: &mockTargetRepo{byToken: map[string]*model.TargetContext{
			"aabbccdd": {TargetID: 7, CampaignID: 3, CampaignName: "Drill", UserID: 42, UserName: "Alice Haddad", UserEmail: "alice.haddad@engin.local"},
		}},
		EventRepo:     events,
		DecisionRepo:  decisions,
		QuizRepo:      quiz,
		AwarenessRepo: awareness,
		Logger:        zap.NewNop(),
		Loc:           time.UTC,
		Now:           func() time.Time { return time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC) },
	}
	return svc, events, decisions, quiz, awareness
}

var client = service.ClientInfo{IP: "10.0.0.5", UserAgent: "curl/8"}

func TestResolveEmptyToken(t *testing.T) {
	svc, _, _, _, _ := newFunnelService()

	_, err := svc.Resolve("")
	assert.ErrorIs(t, err, appErrors.ErrEmptyToken)

	_, err = svc.Resolve("   ")
	assert.ErrorIs(t, err, appErrors.ErrEmptyToken)
}

func TestResolveUnknownToken(t *testing.T) {
	svc, _, _, _, _ := newFunnelService()

	_, err := svc.Resolve("deadbeef")
	assert.ErrorIs(t, err, appErrors.ErrTokenNotFound)
}

func TestRecordClickIdempotent(t *testing.T) {
	svc, events, _, _, _ := newFunnelService()

	tc, err := svc.RecordClick("aabbccdd", client)
	require.NoError(t, err)
	assert.Equal(t, 7, tc.TargetID)

	// A second visit resolves the same context but writes nothing new.
	tc2, err := svc.RecordClick("aabbccdd", client)
	require.NoError(t, err)
	assert.Equal(t, tc.TargetID, tc2.TargetID)
	assert.Len(t, events.logged, 1)
	assert.True(t, events.logged["7/clicked"])
}

func TestRecordReportWithoutClick(t *testing.T) {
	svc, events, _, _, _ := newFunnelService()

	_, err := svc.RecordReport("aabbccdd", client)
	require.NoError(t, err)
	assert.True(t, events.logged["7/reported"])
	assert.False(t, events.logged["7/clicked"])
}

func TestRecordDecisionInvalidValue(t *testing.T) {
	svc, _, _, _, _ := newFunnelService()

	_, err := svc.RecordDecision("aabbccdd", "maybe", client)
	var invalid *appErrors.ErrValidation
	assert.True(t, errors.As(err, &invalid))
}

func TestRecordDecisionContinue(t *testing.T) {
	svc, events, decisions, _, _ := newFunnelService()

	outcome, err := svc.RecordDecision("aabbccdd", "continue", client)
	require.NoError(t, err)
	assert.True(t, outcome.Awareness)
	assert.Equal(t, model.DecisionContinue, outcome.Decision)
	assert.True(t, decisions.recorded["7/continue"])
	assert.True(t, events.logged["7/continue_anyway"])
}

func TestRecordDecisionBack(t *testing.T) {
	svc, events, decisions, _, _ := newFunnelService()

	outcome, err := svc.RecordDecision("aabbccdd", " BACK ", client)
	require.NoError(t, err)
	assert.False(t, outcome.Awareness)
	assert.True(t, decisions.recorded["7/back"])
	assert.True(t, events.logged["7/go_back"])
}

// Both decision values can coexist for the same target; each is recorded once.
func TestRecordDecisionBothValues(t *testing.T) {
	svc, events, decisions, _, _ := newFunnelService()

	_, err := svc.RecordDecision("aabbccdd", "continue", client)
	require.NoError(t, err)
	_, err = svc.RecordDecision("aabbccdd", "back", client)
	require.NoError(t, err)
	_, err = svc.RecordDecision("aabbccdd", "continue", client)
	require.NoError(t, err)

	assert.Len(t, decisions.recorded, 2)
	assert.True(t, events.logged["7/continue_anyway"])
	assert.True(t, events.logged["7/go_back"])
}

func TestAwarenessViewErrorSwallowed(t *testing.T) {
	svc, _, _, _, awareness := newFunnelService()
	awareness.err = errors.New("disk full")

	tc, err := svc.RecordAwarenessView("aabbccdd")
	require.NoError(t, err, "telemetry failure must not break the page")
	assert.Equal(t, "Alice Haddad", tc.UserName)
}

func TestQuizGradingAndPassCutoff(t *testing.T) {
	allCorrect := map[string]string{"q1": "c", "q2": "b", "q3": "c", "q4": "b", "q5": "c"}
	assert.Equal(t, 5, service.GradeQuiz(allCorrect))
	assert.Equal(t, 0, service.GradeQuiz(map[string]string{"q1": "a", "q2": "a"}))
	assert.Equal(t, 0, service.GradeQuiz(nil))

	// Unknown question ids never add to the score.
	assert.Equal(t, 1, service.GradeQuiz(map[string]string{"q1": "c", "q99": "c"}))
}

func TestRecordQuizAttemptRepeatable(t *testing.T) {
	svc, _, _, quiz, _ := newFunnelService()

	first, err := svc.RecordQuizAttempt("aabbccdd", map[string]string{"q1": "c", "q2": "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Score)
	assert.False(t, first.Passed)

	second, err := svc.RecordQuizAttempt("aabbccdd", map[string]string{"q1": "c", "q2": "b", "q3": "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, second.Score)
	assert.True(t, second.Passed, "exactly the cutoff passes")

	assert.Len(t, quiz.attempts, 2, "attempts accumulate, never overwrite")
}
