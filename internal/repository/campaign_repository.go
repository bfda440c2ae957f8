package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	CreateWithTargets(c *model.Campaign, userIDs []int, newToken func() (string, error)) error
	UpdateWithTargets(c *model.Campaign, userIDs []int, newToken func() (string, error)) error
	GetByID(id int) (*model.Campaign, error)
	List() ([]*model.Campaign, error)
	UpdateStatus(campaignID int, status string) error
	DeleteCascade(campaignID int) error
	ActiveWithPending(now time.Time) ([]*model.CampaignTemplate, error)
	GetWithTemplate(campaignID int) (*model.CampaignTemplate, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaign CRUD ======================

// CreateWithTargets inserts the campaign and one target per user id, each with
// a fresh token, inside a single transaction. Partial creation is never
// visible.
func (r *CampaignRepository) CreateWithTargets(c *model.Campaign, userIDs []int, newToken func() (string, error)) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c.CreatedAt = time.Now()
	query := `
        INSERT INTO campaigns (name, template_id, start_at, end_at, status, created_by, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING campaign_id
    `
	err = tx.QueryRow(query, c.Name, c.TemplateID, c.StartAt, c.EndAt, c.Status, c.CreatedBy, c.Description, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return err
	}

	if err := insertTargets(tx, c.ID, userIDs, newToken); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateWithTargets rewrites the campaign row and rebuilds its target set with
// fresh tokens. Callers must have verified the campaign is still scheduled.
func (r *CampaignRepository) UpdateWithTargets(c *model.Campaign, userIDs []int, newToken func() (string, error)) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        UPDATE campaigns
        SET name=$1, template_id=$2, start_at=$3, end_at=$4, description=$5, status=$6
        WHERE campaign_id=$7
    `
	res, err := tx.Exec(query, c.Name, c.TemplateID, c.StartAt, c.EndAt, c.Description, c.Status, c.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewCampaignNotFound(c.ID)
	}

	if _, err := tx.Exec(`DELETE FROM campaign_targets WHERE campaign_id=$1`, c.ID); err != nil {
		return err
	}
	if err := insertTargets(tx, c.ID, userIDs, newToken); err != nil {
		return err
	}

	return tx.Commit()
}

func insertTargets(tx *sql.Tx, campaignID int, userIDs []int, newToken func() (string, error)) error {
	ins, err := tx.Prepare(`
        INSERT INTO campaign_targets (campaign_id, user_id, unique_link_token, delivery_status, created_at)
        VALUES ($1, $2, $3, 'pending', NOW())
        ON CONFLICT (campaign_id, user_id) DO NOTHING
    `)
	if err != nil {
		return err
	}
	defer ins.Close()

	for _, uid := range userIDs {
		tok, err := newToken()
		if err != nil {
			return err
		}
		if _, err := ins.Exec(campaignID, uid, tok); err != nil {
			return fmt.Errorf("insert target for user %d: %w", uid, err)
		}
	}
	return nil
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `
        SELECT campaign_id, name, template_id, start_at, end_at, status, created_by, description, created_at
        FROM campaigns WHERE campaign_id=$1
    `
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.TemplateID, &c.StartAt, &c.EndAt, &c.Status, &c.CreatedBy, &c.Description, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) List() ([]*model.Campaign, error) {
	query := `
        SELECT campaign_id, name, template_id, start_at, end_at, status, created_by, description, created_at
        FROM campaigns ORDER BY start_at DESC
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(&c.ID, &c.Name, &c.TemplateID, &c.StartAt, &c.EndAt, &c.Status, &c.CreatedBy, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1 WHERE campaign_id=$2`
	_, err := r.DB.Exec(query, status, campaignID)
	return err
}

// ====================== Cascade delete ======================

// DeleteCascade removes the campaign and every row depending on it in one
// transaction: funnel data first, then targets, then the campaign itself.
func (r *CampaignRepository) DeleteCascade(campaignID int) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT target_id FROM campaign_targets WHERE campaign_id=$1`, campaignID)
	if err != nil {
		return err
	}
	targetIDs := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		targetIDs = append(targetIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(targetIDs) > 0 {
		ids := pq.Array(targetIDs)
		for _, table := range []string{"funnel_events", "warning_decisions", "awareness_views", "quiz_attempts"} {
			if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE target_id = ANY($1)`, table), ids); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM campaign_targets WHERE campaign_id=$1`, campaignID); err != nil {
		return err
	}

	res, err := tx.Exec(`DELETE FROM campaigns WHERE campaign_id=$1`, campaignID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewCampaignNotFound(campaignID)
	}

	return tx.Commit()
}

// ====================== Dispatch queries ======================

// ActiveWithPending selects campaigns inside their window, still scheduled or
// running, that have at least one pending target, joined with their template.
func (r *CampaignRepository) ActiveWithPending(now time.Time) ([]*model.CampaignTemplate, error) {
	query := `
        SELECT c.campaign_id, c.name, c.status, c.start_at, c.end_at,
               t.subject, t.body_html, t.sender_name, t.sender_email
        FROM campaigns c
        JOIN email_templates t ON c.template_id = t.template_id
        WHERE c.start_at <= $1
          AND c.end_at > $1
          AND c.status IN ('scheduled', 'running')
          AND EXISTS (
                SELECT 1 FROM campaign_targets ct
                WHERE ct.campaign_id = c.campaign_id
                  AND ct.delivery_status = 'pending'
          )
        ORDER BY c.campaign_id
    `
	rows, err := r.DB.Query(query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.CampaignTemplate{}
	for rows.Next() {
		ct := &model.CampaignTemplate{}
		if err := rows.Scan(&ct.CampaignID, &ct.Name, &ct.Status, &ct.StartAt, &ct.EndAt,
			&ct.Subject, &ct.BodyHTML, &ct.SenderName, &ct.SenderEmail); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (r *CampaignRepository) GetWithTemplate(campaignID int) (*model.CampaignTemplate, error) {
	query := `
        SELECT c.campaign_id, c.name, c.status, c.start_at, c.end_at,
               t.subject, t.body_html, t.sender_name, t.sender_email
        FROM campaigns c
        JOIN email_templates t ON c.template_id = t.template_id
        WHERE c.campaign_id = $1
    `
	ct := &model.CampaignTemplate{}
	err := r.DB.QueryRow(query, campaignID).Scan(&ct.CampaignID, &ct.Name, &ct.Status, &ct.StartAt, &ct.EndAt,
		&ct.Subject, &ct.BodyHTML, &ct.SenderName, &ct.SenderEmail)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(campaignID)
		}
		return nil, err
	}
	return ct, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
