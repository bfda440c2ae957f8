// internal/controller/directory_controller.go
package controller

import (
	"net/http"

	"github.com/phishguard/phishguard-backend/internal/repository"
)

// DirectoryController exposes the read-only employee directory the campaign
// composer picks targets from.
type DirectoryController struct {
	UserRepo repository.UserRepositoryInterface
}

func (c *DirectoryController) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.UserRepo.ListEmployees()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": users})
}

func (c *DirectoryController) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := c.UserRepo.ListDepartments()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": departments})
}
