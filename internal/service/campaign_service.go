// internal/service/campaign_service.go
package service

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/model"
	"github.com/phishguard/phishguard-backend/internal/repository"
	"github.com/phishguard/phishguard-backend/internal/token"
)

type CampaignService struct {
	CampaignRepo    repository.CampaignRepositoryInterface
	UserRepo        repository.UserRepositoryInterface
	TemplateRepo    repository.TemplateRepositoryInterface
	Logger          *zap.Logger
	Loc             *time.Location
	Now             func() time.Time
	RecipientDomain string
	Validate        *validator.Validate
	NewToken        func() (string, error)
}

// CampaignInput is the admin payload for creating or editing a campaign.
// Targets is a free-form spec: comma/semicolon separated department names,
// deptid:<n> / user:<email> references, employee emails, or full names.
type CampaignInput struct {
	Name        string    `json:"name" validate:"required"`
	TemplateID  int       `json:"template_id" validate:"required,gt=0"`
	StartAt     time.Time `json:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" validate:"required"`
	Description string    `json:"description"`
	Targets     string    `json:"targets" validate:"required"`
	CreatedBy   int       `json:"created_by"`
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Loc)
	}
	return time.Now().In(s.Loc)
}

func (s *CampaignService) newToken() (string, error) {
	if s.NewToken != nil {
		return s.NewToken()
	}
	return token.New()
}

func (s *CampaignService) validateInput(in *CampaignInput) error {
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return appErrors.NewValidation("please fill in all required fields: " + err.Error())
		}
	}
	if !in.EndAt.After(in.StartAt) {
		return appErrors.NewValidation("end date/time must be after start date/time")
	}
	return nil
}

// CreateCampaign validates the schedule, resolves the target spec and writes
// campaign plus targets in one transaction. The initial stored status is
// derived from the window at creation time.
func (s *CampaignService) CreateCampaign(in CampaignInput) (*model.Campaign, error) {
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}
	if _, err := s.TemplateRepo.GetByID(in.TemplateID); err != nil {
		return nil, err
	}

	userIDs, err := s.ResolveTargetSpec(in.Targets)
	if err != nil {
		return nil, err
	}

	c := &model.Campaign{
		Name:        in.Name,
		TemplateID:  in.TemplateID,
		StartAt:     in.StartAt,
		EndAt:       in.EndAt,
		Status:      DeriveStatus(s.now(), in.StartAt, in.EndAt),
		CreatedBy:   in.CreatedBy,
		Description: in.Description,
	}
	if err := s.CampaignRepo.CreateWithTargets(c, userIDs, s.newToken); err != nil {
		return nil, err
	}

	s.Logger.Info("campaign created",
		zap.Int("campaign_id", c.ID),
		zap.String("status", c.Status),
		zap.Int("targets", len(userIDs)))
	return c, nil
}

// UpdateCampaign rewrites a campaign and rebuilds its target set with fresh
// tokens. Only campaigns whose derived status is still scheduled can be
// edited; running and completed ones are read-only.
func (s *CampaignService) UpdateCampaign(id int, in CampaignInput) (*model.Campaign, error) {
	existing, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	derived := DeriveStatus(s.now(), existing.StartAt, existing.EndAt)
	if derived != model.StatusScheduled {
		return nil, appErrors.NewCampaignLocked(id, derived)
	}

	if err := s.validateInput(&in); err != nil {
		return nil, err
	}
	if _, err := s.TemplateRepo.GetByID(in.TemplateID); err != nil {
		return nil, err
	}
	userIDs, err := s.ResolveTargetSpec(in.Targets)
	if err != nil {
		return nil, err
	}

	c := &model.Campaign{
		ID:          id,
		Name:        in.Name,
		TemplateID:  in.TemplateID,
		StartAt:     in.StartAt,
		EndAt:       in.EndAt,
		Status:      model.StatusScheduled,
		CreatedBy:   existing.CreatedBy,
		Description: in.Description,
		CreatedAt:   existing.CreatedAt,
	}
	if err := s.CampaignRepo.UpdateWithTargets(c, userIDs, s.newToken); err != nil {
		return nil, err
	}

	s.Logger.Info("campaign updated", zap.Int("campaign_id", id), zap.Int("targets", len(userIDs)))
	return c, nil
}

// DeleteCampaign removes the campaign and everything depending on it. All or
// nothing: partial deletion is never observable.
func (s *CampaignService) DeleteCampaign(id int) error {
	if err := s.CampaignRepo.DeleteCascade(id); err != nil {
		return err
	}
	s.Logger.Info("campaign deleted", zap.Int("campaign_id", id))
	return nil
}

func (s *CampaignService) GetCampaign(id int) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	c.Status = DeriveStatus(s.now(), c.StartAt, c.EndAt)
	return c, nil
}

// ListCampaigns returns all campaigns with their live derived status.
func (s *CampaignService) ListCampaigns() ([]model.Campaign, error) {
	ptrs, err := s.CampaignRepo.List()
	if err != nil {
		return nil, err
	}
	now := s.now()
	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		c.Status = DeriveStatus(now, c.StartAt, c.EndAt)
		campaigns[i] = *c
	}
	return campaigns, nil
}

// SweepStatuses recomputes every campaign's status and persists only the rows
// whose derived value changed. Idempotent; safe to run before any admin read.
func (s *CampaignService) SweepStatuses() (int, error) {
	campaigns, err := s.CampaignRepo.List()
	if err != nil {
		return 0, err
	}

	now := s.now()
	updated := 0
	for _, c := range campaigns {
		derived := DeriveStatus(now, c.StartAt, c.EndAt)
		if derived == c.Status {
			continue
		}
		if err := s.CampaignRepo.UpdateStatus(c.ID, derived); err != nil {
			return updated, err
		}
		updated++
	}
	if updated > 0 {
		s.Logger.Info("status sweep", zap.Int("updated", updated))
	}
	return updated, nil
}

// ====================== Target resolution ======================

// ResolveTargetSpec expands a free-form target spec into a deduplicated set
// of employee ids. Matching is case-insensitive; unmatched terms are silently
// dropped. Only recipients on the restricted internal domain may be targeted,
// so a misdirected simulation can never reach external addresses.
func (s *CampaignService) ResolveTargetSpec(spec string) ([]int, error) {
	terms := splitTerms(spec)
	if len(terms) == 0 {
		return nil, appErrors.ErrNoRecipients
	}

	employees, err := s.UserRepo.ListEmployees()
	if err != nil {
		return nil, err
	}
	departments, err := s.UserRepo.ListDepartments()
	if err != nil {
		return nil, err
	}

	deptByName := map[string]int{}
	for _, d := range departments {
		deptByName[strings.ToLower(d.Name)] = d.ID
	}

	domainSuffix := "@" + strings.ToLower(s.RecipientDomain)
	internal := func(u model.User) bool {
		return strings.HasSuffix(strings.ToLower(u.Email), domainSuffix)
	}

	selected := map[int]bool{}
	addDepartment := func(deptID int) error {
		ids, err := s.UserRepo.EmployeeIDsByDepartment(deptID)
		if err != nil {
			return err
		}
		byID := map[int]model.User{}
		for _, u := range employees {
			byID[u.ID] = u
		}
		for _, id := range ids {
			if u, ok := byID[id]; ok && internal(u) {
				selected[id] = true
			}
		}
		return nil
	}

	for _, term := range terms {
		lower := strings.ToLower(term)

		if rest, ok := strings.CutPrefix(lower, "deptid:"); ok {
			if id := atoiSafe(rest); id > 0 {
				if err := addDepartment(id); err != nil {
					return nil, err
				}
			}
			continue
		}

		if rest, ok := strings.CutPrefix(lower, "user:"); ok {
			for _, u := range employees {
				if strings.ToLower(u.Email) == rest && internal(u) {
					selected[u.ID] = true
				}
			}
			continue
		}

		if deptID, ok := deptByName[lower]; ok {
			if err := addDepartment(deptID); err != nil {
				return nil, err
			}
			continue
		}

		for _, u := range employees {
			if (strings.ToLower(u.Email) == lower || strings.ToLower(u.Name) == lower) && internal(u) {
				selected[u.ID] = true
			}
		}
	}

	if len(selected) == 0 {
		return nil, appErrors.ErrNoRecipients
	}

	ids := make([]int, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	return ids, nil
}

func splitTerms(spec string) []string {
	raw := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ';'
	})
	terms := []string{}
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
