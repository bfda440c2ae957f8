// internal/service/dispatch_service.go
package service

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phishguard/phishguard-backend/internal/mailer"
	"github.com/phishguard/phishguard-backend/internal/model"
	"github.com/phishguard/phishguard-backend/internal/queue"
	"github.com/phishguard/phishguard-backend/internal/repository"
)

// DispatchService sends phishing emails for campaigns inside their active
// window. Safe to invoke repeatedly, including overlapping runs: a target is
// only processed while its delivery status is still pending, and the
// transitions are one-directional.
type DispatchService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	TargetRepo   repository.TargetRepositoryInterface
	Sender       mailer.Sender
	Queue        queue.Queue
	Logger       *zap.Logger
	Loc          *time.Location
	Now          func() time.Time

	LinkBaseURL        string
	SenderDomain       string
	DefaultSenderName  string
	DefaultSenderEmail string
	SendQueue          string
}

// TargetResult is one per-target line in a dispatch run report.
type TargetResult struct {
	CampaignID int    `json:"campaign_id"`
	TargetID   int    `json:"target_id"`
	Email      string `json:"email"`
	Status     string `json:"status"` // sent or failed
	Error      string `json:"error,omitempty"`
}

// DispatchReport summarizes one batch run.
type DispatchReport struct {
	RunID     string         `json:"run_id"`
	Campaigns int            `json:"campaigns"`
	Sent      int            `json:"sent"`
	Failed    int            `json:"failed"`
	Results   []TargetResult `json:"results"`
}

// SendJob is the queue payload for one target, consumed by cmd/worker.
type SendJob struct {
	CampaignID int `json:"campaign_id"`
	TargetID   int `json:"target_id"`
}

func (s *DispatchService) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Loc)
	}
	return time.Now().In(s.Loc)
}

// Run processes every active campaign with pending targets synchronously.
// A failed send marks only that target failed and the loop continues; there
// is no automatic retry anywhere.
func (s *DispatchService) Run() (*DispatchReport, error) {
	report := &DispatchReport{RunID: uuid.NewString(), Results: []TargetResult{}}

	now := s.now()
	campaigns, err := s.CampaignRepo.ActiveWithPending(now)
	if err != nil {
		return nil, err
	}
	report.Campaigns = len(campaigns)

	for _, c := range campaigns {
		targets, err := s.TargetRepo.PendingByCampaign(c.CampaignID)
		if err != nil {
			s.Logger.Error("load pending targets", zap.Int("campaign_id", c.CampaignID), zap.Error(err))
			continue
		}
		for _, t := range targets {
			report.Results = append(report.Results, s.sendTarget(c, t))
		}

		// First processed batch moves a scheduled campaign to running; from
		// then on the status engine derives running naturally.
		if c.Status == model.StatusScheduled {
			if err := s.CampaignRepo.UpdateStatus(c.CampaignID, model.StatusRunning); err != nil {
				s.Logger.Error("mark campaign running", zap.Int("campaign_id", c.CampaignID), zap.Error(err))
			}
		}
	}

	for _, r := range report.Results {
		if r.Status == model.DeliverySent {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	s.Logger.Info("dispatch run finished",
		zap.String("run_id", report.RunID),
		zap.Int("campaigns", report.Campaigns),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed))
	return report, nil
}

// EnqueuePending publishes one SendJob per pending target of every active
// campaign instead of sending inline. cmd/worker consumes the jobs.
func (s *DispatchService) EnqueuePending() (int, error) {
	now := s.now()
	campaigns, err := s.CampaignRepo.ActiveWithPending(now)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, c := range campaigns {
		targets, err := s.TargetRepo.PendingByCampaign(c.CampaignID)
		if err != nil {
			return queued, err
		}
		for _, t := range targets {
			body, err := json.Marshal(SendJob{CampaignID: c.CampaignID, TargetID: t.TargetID})
			if err != nil {
				return queued, err
			}
			if err := s.Queue.Publish(s.SendQueue, body); err != nil {
				return queued, err
			}
			queued++
		}
	}
	s.Logger.Info("dispatch jobs queued", zap.Int("jobs", queued))
	return queued, nil
}

// SendOne processes a single queued job. A target that is no longer pending
// is skipped, which makes redelivered jobs harmless.
func (s *DispatchService) SendOne(job SendJob) (*TargetResult, error) {
	c, err := s.CampaignRepo.GetWithTemplate(job.CampaignID)
	if err != nil {
		return nil, err
	}
	t, err := s.TargetRepo.GetPending(job.TargetID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}

	result := s.sendTarget(c, t)

	if c.Status == model.StatusScheduled {
		if err := s.CampaignRepo.UpdateStatus(c.CampaignID, model.StatusRunning); err != nil {
			s.Logger.Error("mark campaign running", zap.Int("campaign_id", c.CampaignID), zap.Error(err))
		}
	}
	return &result, nil
}

func (s *DispatchService) sendTarget(c *model.CampaignTemplate, t *model.PendingTarget) TargetResult {
	subject, body := s.renderMessage(c, t)
	fromName, fromEmail := s.senderIdentity(c)

	err := s.Sender.Send(mailer.Message{
		FromName:  fromName,
		FromEmail: fromEmail,
		ToName:    t.UserName,
		ToEmail:   t.UserEmail,
		Subject:   subject,
		BodyHTML:  body,
	})

	result := TargetResult{CampaignID: c.CampaignID, TargetID: t.TargetID, Email: t.UserEmail}
	if err != nil {
		result.Status = model.DeliveryFailed
		result.Error = err.Error()
		if markErr := s.TargetRepo.MarkFailed(t.TargetID); markErr != nil {
			s.Logger.Error("mark target failed", zap.Int("target_id", t.TargetID), zap.Error(markErr))
		}
		s.Logger.Warn("send failed",
			zap.Int("target_id", t.TargetID),
			zap.String("email", t.UserEmail),
			zap.Error(err))
		return result
	}

	result.Status = model.DeliverySent
	if markErr := s.TargetRepo.MarkSent(t.TargetID, s.now()); markErr != nil {
		s.Logger.Error("mark target sent", zap.Int("target_id", t.TargetID), zap.Error(markErr))
	}
	return result
}

// senderIdentity uses the template sender when it is on the allow-listed
// domain; otherwise the configured default identity.
func (s *DispatchService) senderIdentity(c *model.CampaignTemplate) (string, string) {
	name := strings.TrimSpace(c.SenderName)
	if name == "" {
		name = s.DefaultSenderName
	}
	email := strings.ToLower(strings.TrimSpace(c.SenderEmail))
	if !s.allowedSender(email) {
		email = s.DefaultSenderEmail
	}
	return name, email
}

func (s *DispatchService) allowedSender(email string) bool {
	if email == "" || !strings.Contains(email, "@") {
		return false
	}
	return strings.HasSuffix(email, "@"+strings.ToLower(s.SenderDomain))
}

func (s *DispatchService) renderMessage(c *model.CampaignTemplate, t *model.PendingTarget) (string, string) {
	phishLink := s.PhishURL(t.Token)
	reportLink := s.ReportURL(t.Token)

	subject := strings.ReplaceAll(c.Subject, "{{name}}", t.UserName)

	body := c.BodyHTML
	body = strings.ReplaceAll(body, "{{name}}", t.UserName)
	body = strings.ReplaceAll(body, "{{phish_link}}", phishLink)
	body = strings.ReplaceAll(body, "{{report_link}}", reportLink)
	return subject, body
}

// PhishURL builds the warning-page link embedding the target's token.
func (s *DispatchService) PhishURL(token string) string {
	return fmt.Sprintf("%s/t/%s/click", s.LinkBaseURL, url.PathEscape(token))
}

// ReportURL builds the report link embedding the target's token.
func (s *DispatchService) ReportURL(token string) string {
	return fmt.Sprintf("%s/t/%s/report", s.LinkBaseURL, url.PathEscape(token))
}
