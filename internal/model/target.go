// internal/model/target.go
package model

import "time"

// Delivery statuses for a campaign target. Transitions are one-directional:
// pending -> sent or pending -> failed. A failed target stays failed until an
// operator reconciles it by hand.
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// Target is one recipient's participation record within one campaign. The
// token is the only credential recipient-facing pages ever see.
type Target struct {
	ID             int        `db:"target_id" json:"id"`
	CampaignID     int        `db:"campaign_id" json:"campaign_id"`
	UserID         int        `db:"user_id" json:"user_id"`
	Token          string     `db:"unique_link_token" json:"-"`
	DeliveryStatus string     `db:"delivery_status" json:"delivery_status"`
	SentAt         *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// TargetContext is the result of resolving a token: everything a
// recipient-facing page needs to render and log against.
type TargetContext struct {
	TargetID     int    `json:"target_id"`
	CampaignID   int    `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	UserID       int    `json:"user_id"`
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
}

// PendingTarget is a pending target joined with its recipient, shaped for the
// dispatcher.
type PendingTarget struct {
	TargetID  int
	Token     string
	UserName  string
	UserEmail string
}
