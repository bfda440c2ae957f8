// internal/model/event.go
package model

import "time"

// EventType enumerates the funnel facts recorded per target. Each kind is
// logged at most once per target; repeats are no-ops.
type EventType string

const (
	EventClicked        EventType = "clicked"
	EventReported       EventType = "reported"
	EventContinueAnyway EventType = "continue_anyway"
	EventGoBack         EventType = "go_back"
)

// FunnelEvent is a timestamped behavioural fact about a target.
type FunnelEvent struct {
	ID        int       `db:"event_id" json:"id"`
	TargetID  int       `db:"target_id" json:"target_id"`
	EventType EventType `db:"event_type" json:"event_type"`
	IP        string    `db:"ip" json:"ip"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Decision values chosen on the warning page.
const (
	DecisionContinue = "continue"
	DecisionBack     = "back"
)

// Decision records an explicit warning-page choice. At most one row per
// (target, value); a target may hold both a "back" and a later "continue"
// from repeated visits.
type Decision struct {
	ID        int       `db:"decision_id" json:"id"`
	TargetID  int       `db:"target_id" json:"target_id"`
	Decision  string    `db:"decision" json:"decision"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// QuizAttempt is one graded quiz submission. Attempts are repeatable; reports
// use the latest attempt per user within the campaign window.
type QuizAttempt struct {
	ID        int       `db:"attempt_id" json:"id"`
	TargetID  int       `db:"target_id" json:"target_id"`
	Score     int       `db:"score" json:"score"`
	Passed    bool      `db:"passed" json:"passed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AwarenessView marks the first visit to the awareness page. One row per
// target, best-effort telemetry only.
type AwarenessView struct {
	ID       int       `db:"view_id" json:"id"`
	TargetID int       `db:"target_id" json:"target_id"`
	ViewedAt time.Time `db:"viewed_at" json:"viewed_at"`
}
