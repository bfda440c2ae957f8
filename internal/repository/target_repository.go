package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/model"
)

// TargetRepositoryInterface covers token resolution and the dispatch-side
// delivery transitions.
type TargetRepositoryInterface interface {
	ResolveToken(token string) (*model.TargetContext, error)
	PendingByCampaign(campaignID int) ([]*model.PendingTarget, error)
	GetPending(targetID int) (*model.PendingTarget, error)
	MarkSent(targetID int, at time.Time) error
	MarkFailed(targetID int) error
}

type TargetRepository struct {
	DB *sql.DB
}

// ResolveToken maps a capability token to its target context. Tokens remain
// resolvable after their campaign completes; the reporting window already
// keeps late events out of the numbers.
func (r *TargetRepository) ResolveToken(token string) (*model.TargetContext, error) {
	query := `
        SELECT ct.target_id, ct.campaign_id, c.name, u.user_id, u.name, u.email
        FROM campaign_targets ct
        JOIN users u     ON ct.user_id = u.user_id
        JOIN campaigns c ON ct.campaign_id = c.campaign_id
        WHERE ct.unique_link_token = $1
    `
	var tc model.TargetContext
	err := r.DB.QueryRow(query, token).Scan(&tc.TargetID, &tc.CampaignID, &tc.CampaignName, &tc.UserID, &tc.UserName, &tc.UserEmail)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrTokenNotFound
		}
		return nil, err
	}
	return &tc, nil
}

func (r *TargetRepository) PendingByCampaign(campaignID int) ([]*model.PendingTarget, error) {
	query := `
        SELECT ct.target_id, ct.unique_link_token, u.name, u.email
        FROM campaign_targets ct
        JOIN users u ON ct.user_id = u.user_id
        WHERE ct.campaign_id = $1
          AND ct.delivery_status = 'pending'
        ORDER BY ct.target_id
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targets := []*model.PendingTarget{}
	for rows.Next() {
		t := &model.PendingTarget{}
		if err := rows.Scan(&t.TargetID, &t.Token, &t.UserName, &t.UserEmail); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// GetPending fetches a single target only while it is still pending, so a
// redelivered queue job cannot send twice.
func (r *TargetRepository) GetPending(targetID int) (*model.PendingTarget, error) {
	query := `
        SELECT ct.target_id, ct.unique_link_token, u.name, u.email
        FROM campaign_targets ct
        JOIN users u ON ct.user_id = u.user_id
        WHERE ct.target_id = $1
          AND ct.delivery_status = 'pending'
    `
	t := &model.PendingTarget{}
	err := r.DB.QueryRow(query, targetID).Scan(&t.TargetID, &t.Token, &t.UserName, &t.UserEmail)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *TargetRepository) MarkSent(targetID int, at time.Time) error {
	query := `
        UPDATE campaign_targets
        SET delivery_status='sent', sent_at=$1
        WHERE target_id=$2 AND delivery_status='pending'
    `
	_, err := r.DB.Exec(query, at, targetID)
	return err
}

func (r *TargetRepository) MarkFailed(targetID int) error {
	query := `
        UPDATE campaign_targets
        SET delivery_status='failed'
        WHERE target_id=$1 AND delivery_status='pending'
    `
	_, err := r.DB.Exec(query, targetID)
	return err
}

var _ TargetRepositoryInterface = (*TargetRepository)(nil)
