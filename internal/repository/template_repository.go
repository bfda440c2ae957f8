package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	GetByID(id int) (*model.EmailTemplate, error)
	List() ([]model.EmailTemplate, error)
	Create(t *model.EmailTemplate) error
}

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) GetByID(id int) (*model.EmailTemplate, error) {
	query := `
        SELECT template_id, name, sender_name, sender_email, subject, body_html, is_active, created_at
        FROM email_templates WHERE template_id=$1
    `
	var t model.EmailTemplate
	err := r.DB.QueryRow(query, id).Scan(&t.ID, &t.Name, &t.SenderName, &t.SenderEmail, &t.Subject, &t.BodyHTML, &t.IsActive, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewValidation("email template not found")
		}
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) List() ([]model.EmailTemplate, error) {
	query := `
        SELECT template_id, name, sender_name, sender_email, subject, body_html, is_active, created_at
        FROM email_templates ORDER BY template_id
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []model.EmailTemplate{}
	for rows.Next() {
		var t model.EmailTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.SenderName, &t.SenderEmail, &t.Subject, &t.BodyHTML, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *TemplateRepository) Create(t *model.EmailTemplate) error {
	t.CreatedAt = time.Now()
	query := `
        INSERT INTO email_templates (name, sender_name, sender_email, subject, body_html, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING template_id
    `
	return r.DB.QueryRow(query, t.Name, t.SenderName, t.SenderEmail, t.Subject, t.BodyHTML, t.IsActive, t.CreatedAt).Scan(&t.ID)
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
