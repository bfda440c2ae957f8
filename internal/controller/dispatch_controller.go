// internal/controller/dispatch_controller.go
package controller

import (
	"net/http"

	"github.com/phishguard/phishguard-backend/internal/service"
)

// DispatchController triggers send processing from the admin UI. mode=queue
// publishes jobs for the worker instead of sending inline.
type DispatchController struct {
	DispatchService *service.DispatchService
}

func (c *DispatchController) Run(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("mode") == "queue" {
		queued, err := c.DispatchService.EnqueuePending()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"queued": queued})
		return
	}

	report, err := c.DispatchService.Run()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
