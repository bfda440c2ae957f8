package service_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/mailer"
	"github.com/phishguard/phishguard-backend/internal/model"
	"github.com/phishguard/phishguard-backend/internal/queue"
	"github.com/phishguard/phishguard-backend/internal/service"
)

// --- Mock repositories ---

type mockDispatchCampaignRepo struct {
	active  []*model.CampaignTemplate
	updates map[int]string
}

func (m *mockDispatchCampaignRepo) ActiveWithPending(now time.Time) ([]*model.CampaignTemplate, error) {
	return m.active, nil
}

func (m *mockDispatchCampaignRepo) GetWithTemplate(campaignID int) (*model.CampaignTemplate, error) {
	for _, c := range m.active {
		if c.CampaignID == campaignID {
			return c, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(campaignID)
}

func (m *mockDispatchCampaignRepo) UpdateStatus(campaignID int, status string) error {
	m.updates[campaignID] = status
	return nil
}

func (m *mockDispatchCampaignRepo) CreateWithTargets(c *model.Campaign, userIDs []int, newToken func() (string, error)) error {
	return nil
}
func (m *mockDispatchCampaignRepo) UpdateWithTargets(c *model.Campaign, userIDs []int, newToken func() (string, error)) error {
	return nil
}
func (m *mockDispatchCampaignRepo) GetByID(id int) (*model.Campaign, error) { return nil, nil }
func (m *mockDispatchCampaignRepo) List() ([]*model.Campaign, error)        { return nil, nil }
func (m *mockDispatchCampaignRepo) DeleteCascade(campaignID int) error      { return nil }

type mockDispatchTargetRepo struct {
	pending map[int][]*model.PendingTarget
	sent    []int
	failed  []int
}

func (m *mockDispatchTargetRepo) PendingByCampaign(campaignID int) ([]*model.PendingTarget, error) {
	return m.pending[campaignID], nil
}

func (m *mockDispatchTargetRepo) GetPending(targetID int) (*model.PendingTarget, error) {
	for _, targets := range m.pending {
		for _, t := range targets {
			if t.TargetID == targetID {
				return t, nil
			}
		}
	}
	return nil, nil
}

func (m *mockDispatchTargetRepo) MarkSent(targetID int, at time.Time) error {
	m.sent = append(m.sent, targetID)
	return nil
}

func (m *mockDispatchTargetRepo) MarkFailed(targetID int) error {
	m.failed = append(m.failed, targetID)
	return nil
}

func (m *mockDispatchTargetRepo) ResolveToken(token string) (*model.TargetContext, error) {
	return nil, appErrors.ErrTokenNotFound
}

func dispatchFixture() (*mockDispatchCampaignRepo, *mockDispatchTargetRepo) {
	campaignRepo := &mockDispatchCampaignRepo{
		active: []*model.CampaignTemplate{{
			CampaignID:  3,
			Name:        "Spring Drill",
			Status:      model.StatusScheduled,
			Subject:     "Action required, {{name}}",
			BodyHTML:    `<a href="{{phish_link}}">renew</a> or <a href="{{report_link}}">report</a>`,
			SenderName:  "IT Helpdesk",
			SenderEmail: "helpdesk@eng1n.local",
		}},
		updates: map[int]string{},
	}
	targetRepo := &mockDispatchTargetRepo{
		pending: map[int][]*model.PendingTarget{
			3: {
				{TargetID: 1, Token: "tok1", UserName: "Alice Haddad", UserEmail: "alice.haddad@engin.local"},
				{TargetID: 2, Token: "tok2", UserName: "Bassam Noor", UserEmail: "bassam.noor@engin.local"},
				{TargetID: 3, Token: "tok3", UserName: "Carla Mansour", UserEmail: "carla.mansour@engin.local"},
			},
		},
	}
	return campaignRepo, targetRepo
}

func newDispatchService(campaignRepo *mockDispatchCampaignRepo, targetRepo *mockDispatchTargetRepo, sender mailer.Sender) *service.DispatchService {
	return &service.DispatchService{
		CampaignRepo:       campaignRepo,
		TargetRepo:         targetRepo,
		Sender:             sender,
		Queue:              queue.NewInMemoryQueue(),
		Logger:             zap.NewNop(),
		Loc:                time.UTC,
		Now:                func() time.Time { return time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC) },
		LinkBaseURL:        "http://192.168.56.101",
		SenderDomain:       "eng1n.local",
		DefaultSenderName:  "PhishGuard Security",
		DefaultSenderEmail: "noreply@eng1n.local",
		SendQueue:          "phish_sends",
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	campaignRepo, targetRepo := dispatchFixture()
	sender := mailer.SenderFunc(func(msg mailer.Message) error {
		if msg.ToEmail == "bassam.noor@engin.local" {
			return errors.New("mailbox unavailable")
		}
		return nil
	})
	svc := newDispatchService(campaignRepo, targetRepo, sender)

	report, err := svc.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, report.Campaigns)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []int{1, 3}, targetRepo.sent)
	assert.Equal(t, []int{2}, targetRepo.failed)

	require.Len(t, report.Results, 3)
	assert.Equal(t, model.DeliveryFailed, report.Results[1].Status)
	assert.Contains(t, report.Results[1].Error, "mailbox unavailable")
}

func TestRunMarksScheduledCampaignRunning(t *testing.T) {
	campaignRepo, targetRepo := dispatchFixture()
	svc := newDispatchService(campaignRepo, targetRepo, mailer.SenderFunc(func(mailer.Message) error { return nil }))

	_, err := svc.Run()
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, campaignRepo.updates[3])
}

func TestRunRendersPlaceholders(t *testing.T) {
	campaignRepo, targetRepo := dispatchFixture()
	targetRepo.pending[3] = targetRepo.pending[3][:1]

	var captured mailer.Message
	svc := newDispatchService(campaignRepo, targetRepo, mailer.SenderFunc(func(msg mailer.Message) error {
		captured = msg
		return nil
	}))

	_, err := svc.Run()
	require.NoError(t, err)

	assert.Equal(t, "Action required, Alice Haddad", captured.Subject)
	assert.Contains(t, captured.BodyHTML, "http://192.168.56.101/t/tok1/click")
	assert.Contains(t, captured.BodyHTML, "http://192.168.56.101/t/tok1/report")
	assert.NotContains(t, captured.BodyHTML, "{{")
}

func TestSenderIdentityAllowListed(t *testing.T) {
	campaignRepo, targetRepo := dispatchFixture()
	targetRepo.pending[3] = targetRepo.pending[3][:1]

	var captured mailer.Message
	sender := mailer.SenderFunc(func(msg mailer.Message) error {
		captured = msg
		return nil
	})

	svc := newDispatchService(campaignRepo, targetRepo, sender)
	_, err := svc.Run()
	require.NoError(t, err)
	assert.Equal(t, "helpdesk@eng1n.local", captured.FromEmail)
	assert.Equal(t, "IT Helpdesk", captured.FromName)

	// A template sender outside the allow-listed domain falls back to the
	// configured default identity.
	campaignRepo.active[0].SenderEmail = "spoof@gmail.com"
	targetRepo.pending[3] = []*model.PendingTarget{
		{TargetID: 9, Token: "tok9", UserName: "Alice Haddad", UserEmail: "alice.haddad@engin.local"},
	}
	_, err = svc.Run()
	require.NoError(t, err)
	assert.Equal(t, "noreply@eng1n.local", captured.FromEmail)
}

func TestEnqueuePending(t *testing.T) {
	campaignRepo, targetRepo := dispatchFixture()
	q := queue.NewInMemoryQueue()
	svc := newDispatchService(campaignRepo, targetRepo, mailer.SenderFunc(func(mailer.Message) error { return nil }))
	svc.Queue = q

	queued, err := svc.EnqueuePending()
	require.NoError(t, err)
	assert.Equal(t, 3, queued)
	require.Len(t, q.Messages["phish_sends"], 3)

	var job service.SendJob
	require.NoError(t, json.Unmarshal(q.Messages["phish_sends"][0], &job))
	assert.Equal(t, 3, job.CampaignID)
	assert.Equal(t, 1, job.TargetID)

	// No target was actually sent; queueing is not sending.
	assert.Empty(t, targetRepo.sent)
}

func TestSendOneSkipsNonPendingTarget(t *testing.T) {
	campaignRepo, targetRepo := dispatchFixture()
	sent := 0
	svc := newDispatchService(campaignRepo, targetRepo, mailer.SenderFunc(func(mailer.Message) error {
		sent++
		return nil
	}))

	result, err := svc.SendOne(service.SendJob{CampaignID: 3, TargetID: 99})
	require.NoError(t, err)
	assert.Nil(t, result, "a redelivered job for a handled target is a no-op")
	assert.Zero(t, sent)
}

func TestSendOneProcessesPendingTarget(t *testing.T) {
	campaignRepo, targetRepo := dispatchFixture()
	svc := newDispatchService(campaignRepo, targetRepo, mailer.SenderFunc(func(mailer.Message) error { return nil }))

	result, err := svc.SendOne(service.SendJob{CampaignID: 3, TargetID: 2})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.DeliverySent, result.Status)
	assert.Equal(t, []int{2}, targetRepo.sent)
	assert.Equal(t, model.StatusRunning, campaignRepo.updates[3])
}
