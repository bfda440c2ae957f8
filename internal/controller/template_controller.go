// internal/controller/template_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/model"
	"github.com/phishguard/phishguard-backend/internal/repository"
)

type TemplateController struct {
	TemplateRepo repository.TemplateRepositoryInterface

	// Sender addresses outside this domain are rejected on save.
	SenderDomain string
}

func (c *TemplateController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := c.TemplateRepo.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": templates})
}

func (c *TemplateController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t model.EmailTemplate
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Subject) == "" || strings.TrimSpace(t.BodyHTML) == "" {
		writeError(w, appErrors.NewValidation("name, subject and body_html are required"))
		return
	}
	sender := strings.ToLower(strings.TrimSpace(t.SenderEmail))
	if sender != "" && !strings.HasSuffix(sender, "@"+strings.ToLower(c.SenderDomain)) {
		writeError(w, appErrors.NewValidation("sender_email must be on the "+c.SenderDomain+" domain"))
		return
	}

	if err := c.TemplateRepo.Create(&t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
