package repository

import (
	"database/sql"
	"time"

	"github.com/phishguard/phishguard-backend/internal/model"
)

// EventRepositoryInterface is the append-only funnel event log.
type EventRepositoryInterface interface {
	// LogOnce records the event unless the same kind was already logged for
	// this target. Returns true when a row was actually inserted.
	LogOnce(targetID int, kind model.EventType, ip, userAgent string, at time.Time) (bool, error)
}

type EventRepository struct {
	DB *sql.DB
}

// LogOnce relies on the (target_id, event_type) uniqueness constraint so that
// concurrent duplicate requests cannot race a check-then-insert.
func (r *EventRepository) LogOnce(targetID int, kind model.EventType, ip, userAgent string, at time.Time) (bool, error) {
	query := `
        INSERT INTO funnel_events (target_id, event_type, ip, user_agent, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (target_id, event_type) DO NOTHING
    `
	res, err := r.DB.Exec(query, targetID, string(kind), ip, userAgent, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
