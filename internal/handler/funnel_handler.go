// internal/handler/funnel_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/phishguard/phishguard-backend/internal/errors"
	"github.com/phishguard/phishguard-backend/internal/service"
)

// FunnelHandler serves the recipient-facing token endpoints. Every route is
// keyed by the capability token in the path; there is no session or login.
type FunnelHandler struct {
	FunnelService *service.FunnelService
	Logger        *zap.Logger
}

func (h *FunnelHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError keeps recipient-facing responses uniform: an empty token is a
// bad request, anything unresolvable reads as "invalid or expired" without
// hinting whether the token ever existed.
func (h *FunnelHandler) writeError(w http.ResponseWriter, err error) {
	var invalid *appErrors.ErrValidation
	switch {
	case errors.Is(err, appErrors.ErrEmptyToken):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, appErrors.ErrTokenNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &invalid):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		h.Logger.Error("funnel request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func clientInfo(r *http.Request) service.ClientInfo {
	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.ClientInfo{IP: ip, UserAgent: r.UserAgent()}
}

// Click records the phishing-link visit and returns the warning-page context.
func (h *FunnelHandler) Click(w http.ResponseWriter, r *http.Request) {
	tc, err := h.FunnelService.RecordClick(chi.URLParam(r, "token"), clientInfo(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":          tc.UserName,
		"campaign_name": tc.CampaignName,
		"warning":       "This was a simulated phishing link. Choose whether to continue or go back.",
	})
}

// Decision records the warning-page choice and tells the client where to go
// next: continue leads to the awareness page.
func (h *FunnelHandler) Decision(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Decision string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	outcome, err := h.FunnelService.RecordDecision(chi.URLParam(r, "token"), body.Decision, clientInfo(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]interface{}{"decision": outcome.Decision}
	if outcome.Awareness {
		resp["next"] = "/t/" + chi.URLParam(r, "token") + "/awareness"
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Report records the report action.
func (h *FunnelHandler) Report(w http.ResponseWriter, r *http.Request) {
	tc, err := h.FunnelService.RecordReport(chi.URLParam(r, "token"), clientInfo(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    tc.UserName,
		"message": "Thank you for reporting this email. This was a simulated phishing test.",
	})
}

// Awareness serves the training-page content and marks the first view.
func (h *FunnelHandler) Awareness(w http.ResponseWriter, r *http.Request) {
	tc, err := h.FunnelService.RecordAwarenessView(chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":          tc.UserName,
		"campaign_name": tc.CampaignName,
		"quiz":          "/t/" + chi.URLParam(r, "token") + "/quiz",
	})
}

// Quiz returns the question set without the correct answers.
func (h *FunnelHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	tc, err := h.FunnelService.Resolve(chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":       tc.UserName,
		"questions":  service.QuizQuestions(),
		"max_score":  service.QuizMaxScore(),
		"pass_score": service.QuizPassScore,
	})
}

// SubmitQuiz grades the submitted answers server-side and stores the attempt.
func (h *FunnelHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	attempt, err := h.FunnelService.RecordQuizAttempt(chi.URLParam(r, "token"), body.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"score":      attempt.Score,
		"max_score":  service.QuizMaxScore(),
		"passed":     attempt.Passed,
		"pass_score": service.QuizPassScore,
	})
}
