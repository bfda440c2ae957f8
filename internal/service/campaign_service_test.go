package service_test

import (
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/model"
	"github.com/phishguard/phishguard-backend/internal/service"
)

// --- Mock repositories ---

type mockCampaignStore struct {
	campaigns  map[int]*model.Campaign
	nextID     int
	lastTokens []string
	lastUsers  []int
	updates    map[int]string
	deleteErr  error
}

func newMockCampaignStore() *mockCampaignStore {
	return &mockCampaignStore{campaigns: map[int]*model.Campaign{}, nextID: 1, updates: map[int]string{}}
}

func (m *mockCampaignStore) issueTokens(n int, newToken func() (string, error)) error {
	m.lastTokens = nil
	for i := 0; i < n; i++ {
		tok, err := newToken()
		if err != nil {
			return err
		}
		m.lastTokens = append(m.lastTokens, tok)
	}
	return nil
}

func (m *mockCampaignStore) CreateWithTargets(c *model.Campaign, userIDs []int, newToken func() (string, error)) error {
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	m.campaigns[c.ID] = c
	m.lastUsers = userIDs
	return m.issueTokens(len(userIDs), newToken)
}

func (m *mockCampaignStore) UpdateWithTargets(c *model.Campaign, userIDs []int, newToken func() (string, error)) error {
	if _, ok := m.campaigns[c.ID]; !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	m.campaigns[c.ID] = c
	m.lastUsers = userIDs
	return m.issueTokens(len(userIDs), newToken)
}

func (m *mockCampaignStore) GetByID(id int) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockCampaignStore) List() ([]*model.Campaign, error) {
	ids := []int{}
	for id := range m.campaigns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := []*model.Campaign{}
	for _, id := range ids {
		cp := *m.campaigns[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockCampaignStore) UpdateStatus(campaignID int, status string) error {
	c, ok := m.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	c.Status = status
	m.updates[campaignID] = status
	return nil
}

func (m *mockCampaignStore) DeleteCascade(campaignID int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.campaigns[campaignID]; !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	delete(m.campaigns, campaignID)
	return nil
}

func (m *mockCampaignStore) ActiveWithPending(now time.Time) ([]*model.CampaignTemplate, error) {
	return nil, nil
}

func (m *mockCampaignStore) GetWithTemplate(campaignID int) (*model.CampaignTemplate, error) {
	return nil, appErrors.NewCampaignNotFound(campaignID)
}

type mockUserDirectory struct{}

func (m *mockUserDirectory) ListEmployees() ([]model.User, error) {
	d1, d2 := 1, 2
	return []model.User{
		{ID: 1, Name: "Alice Haddad", Email: "alice.haddad@engin.local", Role: "employee", DepartmentID: &d1, Department: "Finance"},
		{ID: 2, Name: "Bassam Noor", Email: "bassam.noor@engin.local", Role: "employee", DepartmentID: &d1, Department: "Finance"},
		{ID: 3, Name: "Carla Mansour", Email: "carla.mansour@engin.local", Role: "employee", DepartmentID: &d2, Department: "Engineering"},
		{ID: 4, Name: "Eve Outsider", Email: "eve.outsider@gmail.com", Role: "employee", DepartmentID: &d2, Department: "Engineering"},
	}, nil
}

func (m *mockUserDirectory) ListDepartments() ([]model.Department, error) {
	return []model.Department{{ID: 1, Name: "Finance"}, {ID: 2, Name: "Engineering"}}, nil
}

func (m *mockUserDirectory) EmployeeIDsByDepartment(departmentID int) ([]int, error) {
	switch departmentID {
	case 1:
		return []int{1, 2}, nil
	case 2:
		return []int{3, 4}, nil
	}
	return []int{}, nil
}

type mockTemplateStore struct{}

func (m *mockTemplateStore) GetByID(id int) (*model.EmailTemplate, error) {
	if id != 1 {
		return nil, appErrors.NewValidation("email template not found")
	}
	return &model.EmailTemplate{ID: 1, Name: "Password Expiry", Subject: "Hi {{name}}", BodyHTML: "<a href=\"{{phish_link}}\">go</a>"}, nil
}

func (m *mockTemplateStore) List() ([]model.EmailTemplate, error) { return nil, nil }
func (m *mockTemplateStore) Create(t *model.EmailTemplate) error  { return nil }

var campaignNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func newCampaignService(store *mockCampaignStore) *service.CampaignService {
	seq := 0
	return &service.CampaignService{
		CampaignRepo:    store,
		UserRepo:        &mockUserDirectory{},
		TemplateRepo:    &mockTemplateStore{},
		Logger:          zap.NewNop(),
		Loc:             time.UTC,
		Now:             func() time.Time { return campaignNow },
		RecipientDomain: "engin.local",
		Validate:        validator.New(),
		NewToken: func() (string, error) {
			seq++
			return fmt.Sprintf("%032d", seq), nil
		},
	}
}

func validInput() service.CampaignInput {
	return service.CampaignInput{
		Name:       "Spring Drill",
		TemplateID: 1,
		StartAt:    campaignNow.Add(24 * time.Hour),
		EndAt:      campaignNow.Add(8 * 24 * time.Hour),
		Targets:    "Finance",
		CreatedBy:  9,
	}
}

// --- Target resolution ---

func TestResolveTargetSpecDedupes(t *testing.T) {
	svc := newCampaignService(newMockCampaignStore())

	// Alice is in Finance and also named directly; she appears once.
	ids, err := svc.ResolveTargetSpec("Finance, alice.haddad@engin.local")
	require.NoError(t, err)
	sort.Ints(ids)
	assert.Equal(t, []int{1, 2}, ids)
}

func TestResolveTargetSpecCaseInsensitive(t *testing.T) {
	svc := newCampaignService(newMockCampaignStore())

	ids, err := svc.ResolveTargetSpec("ALICE HADDAD; engineering")
	require.NoError(t, err)
	sort.Ints(ids)
	assert.Equal(t, []int{1, 3}, ids)
}

func TestResolveTargetSpecPrefixes(t *testing.T) {
	svc := newCampaignService(newMockCampaignStore())

	ids, err := svc.ResolveTargetSpec("deptid:1, user:carla.mansour@engin.local")
	require.NoError(t, err)
	sort.Ints(ids)
	assert.Equal(t, []int{1, 2, 3}, ids)
}

// External addresses can never be targeted, whether named directly or pulled
// in through a department.
func TestResolveTargetSpecExternalDomainExcluded(t *testing.T) {
	svc := newCampaignService(newMockCampaignStore())

	_, err := svc.ResolveTargetSpec("eve.outsider@gmail.com")
	assert.ErrorIs(t, err, appErrors.ErrNoRecipients)

	ids, err := svc.ResolveTargetSpec("Engineering")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ids)
}

func TestResolveTargetSpecEmpty(t *testing.T) {
	svc := newCampaignService(newMockCampaignStore())

	_, err := svc.ResolveTargetSpec("  ,  ; ")
	assert.ErrorIs(t, err, appErrors.ErrNoRecipients)

	_, err = svc.ResolveTargetSpec("nobody matches this")
	assert.ErrorIs(t, err, appErrors.ErrNoRecipients)
}

// --- Campaign lifecycle ---

func TestCreateCampaignDerivesInitialStatus(t *testing.T) {
	store := newMockCampaignStore()
	svc := newCampaignService(store)

	c, err := svc.CreateCampaign(validInput())
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, c.Status)
	assert.Len(t, store.lastUsers, 2)
	assert.Len(t, store.lastTokens, 2)
	assert.NotEqual(t, store.lastTokens[0], store.lastTokens[1])
}

func TestCreateCampaignAlreadyInWindow(t *testing.T) {
	store := newMockCampaignStore()
	svc := newCampaignService(store)

	in := validInput()
	in.StartAt = campaignNow.Add(-time.Hour)
	in.EndAt = campaignNow.Add(24 * time.Hour)

	c, err := svc.CreateCampaign(in)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, c.Status)
}

func TestCreateCampaignRejectsBadWindow(t *testing.T) {
	svc := newCampaignService(newMockCampaignStore())

	in := validInput()
	in.EndAt = in.StartAt
	_, err := svc.CreateCampaign(in)

	var invalid *appErrors.ErrValidation
	assert.True(t, errors.As(err, &invalid))
}

func TestCreateCampaignUnknownTemplate(t *testing.T) {
	svc := newCampaignService(newMockCampaignStore())

	in := validInput()
	in.TemplateID = 99
	_, err := svc.CreateCampaign(in)

	var invalid *appErrors.ErrValidation
	assert.True(t, errors.As(err, &invalid))
}

func TestUpdateCampaignLockedOnceRunning(t *testing.T) {
	store := newMockCampaignStore()
	svc := newCampaignService(store)

	store.campaigns[1] = &model.Campaign{
		ID:      1,
		Name:    "Live Drill",
		StartAt: campaignNow.Add(-time.Hour),
		EndAt:   campaignNow.Add(24 * time.Hour),
		Status:  model.StatusScheduled, // stale stored value; derived is running
	}

	_, err := svc.UpdateCampaign(1, validInput())
	var locked *appErrors.ErrCampaignLocked
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, model.StatusRunning, locked.Status)
}

func TestUpdateCampaignRebuildsTargetsWithFreshTokens(t *testing.T) {
	store := newMockCampaignStore()
	svc := newCampaignService(store)

	created, err := svc.CreateCampaign(validInput())
	require.NoError(t, err)
	firstTokens := append([]string{}, store.lastTokens...)

	in := validInput()
	in.Targets = "Engineering"
	updated, err := svc.UpdateCampaign(created.ID, in)
	require.NoError(t, err)

	assert.Equal(t, model.StatusScheduled, updated.Status)
	assert.Equal(t, []int{3}, store.lastUsers)
	for _, tok := range store.lastTokens {
		assert.NotContains(t, firstTokens, tok)
	}
}

func TestDeleteCampaignNotFound(t *testing.T) {
	svc := newCampaignService(newMockCampaignStore())

	err := svc.DeleteCampaign(42)
	var notFound *appErrors.ErrCampaignNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestDeleteCampaignPropagatesFailure(t *testing.T) {
	store := newMockCampaignStore()
	store.deleteErr = errors.New("tx aborted")
	svc := newCampaignService(store)

	assert.Error(t, svc.DeleteCampaign(1))
}

func TestSweepStatusesUpdatesOnlyChangedRows(t *testing.T) {
	store := newMockCampaignStore()
	svc := newCampaignService(store)

	store.campaigns[1] = &model.Campaign{ // window over, still marked running
		ID: 1, StartAt: campaignNow.Add(-10 * 24 * time.Hour), EndAt: campaignNow.Add(-3 * 24 * time.Hour),
		Status: model.StatusRunning,
	}
	store.campaigns[2] = &model.Campaign{ // already correct
		ID: 2, StartAt: campaignNow.Add(-time.Hour), EndAt: campaignNow.Add(time.Hour),
		Status: model.StatusRunning,
	}
	store.campaigns[3] = &model.Campaign{ // future, already correct
		ID: 3, StartAt: campaignNow.Add(24 * time.Hour), EndAt: campaignNow.Add(48 * time.Hour),
		Status: model.StatusScheduled,
	}

	updated, err := svc.SweepStatuses()
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, map[int]string{1: model.StatusCompleted}, store.updates)

	// A second sweep finds nothing to do.
	store.updates = map[int]string{}
	updated, err = svc.SweepStatuses()
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.Empty(t, store.updates)
}

func TestListCampaignsOverridesStaleStatus(t *testing.T) {
	store := newMockCampaignStore()
	svc := newCampaignService(store)

	store.campaigns[1] = &model.Campaign{
		ID: 1, StartAt: campaignNow.Add(-time.Hour), EndAt: campaignNow.Add(time.Hour),
		Status: model.StatusScheduled,
	}

	campaigns, err := svc.ListCampaigns()
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, model.StatusRunning, campaigns[0].Status)
}
