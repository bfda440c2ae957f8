package repository

import (
	"database/sql"
	"time"
)

// AwarenessRepositoryInterface marks the first awareness-page view per target.
type AwarenessRepositoryInterface interface {
	LogFirstView(targetID int, at time.Time) (bool, error)
}

type AwarenessRepository struct {
	DB *sql.DB
}

func (r *AwarenessRepository) LogFirstView(targetID int, at time.Time) (bool, error) {
	query := `
        INSERT INTO awareness_views (target_id, viewed_at)
        VALUES ($1, $2)
        ON CONFLICT (target_id) DO NOTHING
    `
	res, err := r.DB.Exec(query, targetID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ AwarenessRepositoryInterface = (*AwarenessRepository)(nil)
