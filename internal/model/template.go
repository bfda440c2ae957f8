// internal/model/template.go
package model

import "time"

// EmailTemplate is the phishing message sent to targets. Body and subject may
// contain the {{name}}, {{phish_link}} and {{report_link}} placeholders.
type EmailTemplate struct {
	ID          int       `db:"template_id" json:"id"`
	Name        string    `db:"name" json:"name"`
	SenderName  string    `db:"sender_name" json:"sender_name"`
	SenderEmail string    `db:"sender_email" json:"sender_email"`
	Subject     string    `db:"subject" json:"subject"`
	BodyHTML    string    `db:"body_html" json:"body_html"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
