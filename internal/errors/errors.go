// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recipient-facing token flows.
var (
	ErrEmptyToken    = errors.New("missing token")
	ErrTokenNotFound = errors.New("invalid or expired token")
	ErrNoRecipients  = errors.New("no valid recipients")
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrCampaignLocked is returned when editing a campaign whose derived status
// is no longer scheduled.
type ErrCampaignLocked struct {
	CampaignID int
	Status     string
}

func (e *ErrCampaignLocked) Error() string {
	return fmt.Sprintf("campaign %d is %s and can no longer be edited", e.CampaignID, e.Status)
}

func NewCampaignLocked(id int, status string) error {
	return &ErrCampaignLocked{CampaignID: id, Status: status}
}

// ErrValidation carries an admin-facing corrective message.
type ErrValidation struct {
	Msg string
}

func (e *ErrValidation) Error() string {
	return e.Msg
}

func NewValidation(msg string) error {
	return &ErrValidation{Msg: msg}
}
