// internal/service/funnel_service.go
package service

import (
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/model"
	"github.com/phishguard/phishguard-backend/internal/repository"
)

// FunnelService owns the recipient-facing token flows. All writes are keyed
// by token resolution; possession of the token is the capability.
//
// Writes come in two classes: funnel facts (events, decisions, quiz attempts)
// must succeed and surface errors, while observational telemetry (awareness
// views) is best-effort and never aborts the recipient's navigation.
type FunnelService struct {
	TargetRepo    repository.TargetRepositoryInterface
	EventRepo     repository.EventRepositoryInterface
	DecisionRepo  repository.DecisionRepositoryInterface
	QuizRepo      repository.QuizRepositoryInterface
	AwarenessRepo repository.AwarenessRepositoryInterface
	Logger        *zap.Logger
	Loc           *time.Location
	Now           func() time.Time
}

// ClientInfo carries the request metadata stored alongside funnel events.
type ClientInfo struct {
	IP        string
	UserAgent string
}

func (s *FunnelService) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Loc)
	}
	return time.Now().In(s.Loc)
}

// Resolve maps a token to its target context. Empty tokens are a bad request,
// unknown ones a not-found; both map onto "invalid or expired" responses.
func (s *FunnelService) Resolve(tok string) (*model.TargetContext, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil, appErrors.ErrEmptyToken
	}
	return s.TargetRepo.ResolveToken(tok)
}

// RecordClick logs the phishing-link visit, once. Repeat visits resolve the
// same context but write nothing.
func (s *FunnelService) RecordClick(tok string, client ClientInfo) (*model.TargetContext, error) {
	tc, err := s.Resolve(tok)
	if err != nil {
		return nil, err
	}
	inserted, err := s.EventRepo.LogOnce(tc.TargetID, model.EventClicked, client.IP, client.UserAgent, s.now())
	if err != nil {
		return nil, err
	}
	if inserted {
		s.Logger.Info("click logged", zap.Int("target_id", tc.TargetID), zap.Int("campaign_id", tc.CampaignID))
	}
	return tc, nil
}

// RecordReport logs the report action, once. Reporting is independent of
// clicking: it can happen with or without a prior click.
func (s *FunnelService) RecordReport(tok string, client ClientInfo) (*model.TargetContext, error) {
	tc, err := s.Resolve(tok)
	if err != nil {
		return nil, err
	}
	inserted, err := s.EventRepo.LogOnce(tc.TargetID, model.EventReported, client.IP, client.UserAgent, s.now())
	if err != nil {
		return nil, err
	}
	if inserted {
		s.Logger.Info("report logged", zap.Int("target_id", tc.TargetID), zap.Int("campaign_id", tc.CampaignID))
	}
	return tc, nil
}

// DecisionOutcome tells the caller where to send the recipient next.
type DecisionOutcome struct {
	Context  *model.TargetContext
	Decision string
	// Awareness is true when the recipient chose to continue and should be
	// redirected to the awareness page.
	Awareness bool
}

// RecordDecision writes the warning-page choice: one decision row per value,
// plus the matching funnel event (continue_anyway or go_back).
func (s *FunnelService) RecordDecision(tok, decision string, client ClientInfo) (*DecisionOutcome, error) {
	decision = strings.ToLower(strings.TrimSpace(decision))
	if decision != model.DecisionContinue && decision != model.DecisionBack {
		return nil, appErrors.NewValidation("decision must be continue or back")
	}

	tc, err := s.Resolve(tok)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := s.DecisionRepo.RecordOnce(tc.TargetID, decision, now); err != nil {
		return nil, err
	}

	kind := model.EventGoBack
	if decision == model.DecisionContinue {
		kind = model.EventContinueAnyway
	}
	if _, err := s.EventRepo.LogOnce(tc.TargetID, kind, client.IP, client.UserAgent, now); err != nil {
		return nil, err
	}

	s.Logger.Info("decision recorded",
		zap.Int("target_id", tc.TargetID),
		zap.String("decision", decision))

	return &DecisionOutcome{
		Context:   tc,
		Decision:  decision,
		Awareness: decision == model.DecisionContinue,
	}, nil
}

// RecordAwarenessView marks the first awareness-page visit. The write is
// best-effort telemetry: failures are logged and swallowed so the page always
// renders.
func (s *FunnelService) RecordAwarenessView(tok string) (*model.TargetContext, error) {
	tc, err := s.Resolve(tok)
	if err != nil {
		return nil, err
	}
	if _, err := s.AwarenessRepo.LogFirstView(tc.TargetID, s.now()); err != nil {
		s.Logger.Warn("awareness view not logged", zap.Int("target_id", tc.TargetID), zap.Error(err))
	}
	return tc, nil
}

// RecordQuizAttempt grades the submitted answers server-side and stores the
// attempt. Attempts are always accepted; score history matters.
func (s *FunnelService) RecordQuizAttempt(tok string, answers map[string]string) (*model.QuizAttempt, error) {
	tc, err := s.Resolve(tok)
	if err != nil {
		return nil, err
	}

	score := GradeQuiz(answers)
	passed := score >= QuizPassScore

	attempt, err := s.QuizRepo.Insert(tc.TargetID, score, passed, s.now())
	if err != nil {
		return nil, err
	}

	s.Logger.Info("quiz attempt recorded",
		zap.Int("target_id", tc.TargetID),
		zap.Int("score", score),
		zap.Bool("passed", passed))
	return attempt, nil
}
