// internal/model/campaign.go
package model

import "time"

// Campaign statuses. The stored column is only a cache of the value derived
// from the campaign window; readers must recompute before trusting it.
const (
	StatusScheduled = "scheduled"
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

type Campaign struct {
	ID          int       `db:"campaign_id" json:"id"`
	Name        string    `db:"name" json:"name"`
	TemplateID  int       `db:"template_id" json:"template_id"`
	StartAt     time.Time `db:"start_at" json:"start_at"`
	EndAt       time.Time `db:"end_at" json:"end_at"`
	Status      string    `db:"status" json:"status"`
	CreatedBy   int       `db:"created_by" json:"created_by"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CampaignTemplate is a campaign joined with its email template, shaped for
// the dispatcher.
type CampaignTemplate struct {
	CampaignID  int
	Name        string
	Status      string
	StartAt     time.Time
	EndAt       time.Time
	Subject     string
	BodyHTML    string
	SenderName  string
	SenderEmail string
}
