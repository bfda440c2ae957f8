package repository

import (
	"database/sql"
	"time"

	"github.com/phishguard/phishguard-backend/internal/model"
)

// QuizRepositoryInterface stores quiz attempts. Attempts are deliberately not
// idempotent: score history matters.
type QuizRepositoryInterface interface {
	Insert(targetID, score int, passed bool, at time.Time) (*model.QuizAttempt, error)
}

type QuizRepository struct {
	DB *sql.DB
}

func (r *QuizRepository) Insert(targetID, score int, passed bool, at time.Time) (*model.QuizAttempt, error) {
	attempt := &model.QuizAttempt{
		TargetID:  targetID,
		Score:     score,
		Passed:    passed,
		CreatedAt: at,
	}
	query := `
        INSERT INTO quiz_attempts (target_id, score, passed, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING attempt_id
    `
	if err := r.DB.QueryRow(query, targetID, score, passed, at).Scan(&attempt.ID); err != nil {
		return nil, err
	}
	return attempt, nil
}

var _ QuizRepositoryInterface = (*QuizRepository)(nil)
