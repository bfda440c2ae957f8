package repository

import (
	"database/sql"
	"time"
)

// DecisionRepositoryInterface records warning-page choices, once per
// (target, value).
type DecisionRepositoryInterface interface {
	RecordOnce(targetID int, decision string, at time.Time) (bool, error)
}

type DecisionRepository struct {
	DB *sql.DB
}

func (r *DecisionRepository) RecordOnce(targetID int, decision string, at time.Time) (bool, error) {
	query := `
        INSERT INTO warning_decisions (target_id, decision, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (target_id, decision) DO NOTHING
    `
	res, err := r.DB.Exec(query, targetID, decision, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ DecisionRepositoryInterface = (*DecisionRepository)(nil)
