// internal/controller/report_controller.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/phishguard/phishguard-backend/internal/service"
)

type ReportController struct {
	ReportService   *service.ReportService
	CampaignService *service.CampaignService
	Logger          *zap.Logger
}

func (c *ReportController) sweep() {
	if _, err := c.CampaignService.SweepStatuses(); err != nil {
		c.Logger.Error("status sweep", zap.Error(err))
	}
}

func (c *ReportController) CampaignReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	c.sweep()

	report, err := c.ReportService.CampaignReport(id, r.URL.Query().Get("detail"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (c *ReportController) Dashboard(w http.ResponseWriter, r *http.Request) {
	c.sweep()

	dashboard, err := c.ReportService.Dashboard()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
