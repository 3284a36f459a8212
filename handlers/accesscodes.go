package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/studyhive/backend/models"
	"github.com/studyhive/backend/service"
)

// dashboardEntryCode is the fixed shared secret for the senior dashboard
// shortcut; it bypasses the code registry entirely.
const (
	dashboardEntryCode = "SENIOR-DESK-2024"
	dashboardEntryRole = models.RoleSenior
)

type AccessCodeHandler struct {
	Redeemer  *service.Redeemer
	DB        UserStore
	JWTSecret string
}

type RedeemRequest struct {
	Code string `json:"code" validate:"required"`
}

type RedeemResponse struct {
	Granted bool                `json:"granted"`
	Role    models.Role         `json:"role,omitempty"`
	Reason  models.RedeemReason `json:"reason,omitempty"`
	Token   string              `json:"token,omitempty"`
	User    *models.User        `json:"user,omitempty"`
}

// Redeem exchanges a code from the registry for an anonymous session carrying
// the code's role. Denials come back as a structured result with a reason,
// never as an error body.
func (h *AccessCodeHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if err := validate.Struct(req); err != nil {
		if !writeFieldErrors(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	result := h.Redeemer.Redeem(r.Context(), req.Code)
	if !result.Granted {
		writeJSON(w, http.StatusOK, RedeemResponse{Granted: false, Reason: result.Reason})
		return
	}
	user, token, err := IssueAnonymousSession(r.Context(), h.DB, h.JWTSecret, []models.Role{result.Role})
	if err != nil {
		// The code may already be consumed at this point; see DESIGN.md on
		// cross-document transactionality.
		writeJSON(w, http.StatusOK, RedeemResponse{Granted: false, Reason: models.ReasonInternalError})
		return
	}
	writeJSON(w, http.StatusOK, RedeemResponse{Granted: true, Role: result.Role, Token: token, User: user})
}

// Dashboard is the simpler gate variant: a constant-time comparison against a
// fixed code, no registry lookup. Every successful entry mints a brand-new
// anonymous principal.
// TODO: reuse an existing anonymous session instead of minting a new profile
// per entry; repeated entries orphan guest profiles.
func (h *AccessCodeHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if subtle.ConstantTimeCompare([]byte(req.Code), []byte(dashboardEntryCode)) != 1 {
		writeJSON(w, http.StatusOK, RedeemResponse{Granted: false, Reason: models.ReasonNotFound})
		return
	}
	user, token, err := IssueAnonymousSession(r.Context(), h.DB, h.JWTSecret, []models.Role{dashboardEntryRole})
	if err != nil {
		writeJSON(w, http.StatusOK, RedeemResponse{Granted: false, Reason: models.ReasonInternalError})
		return
	}
	writeJSON(w, http.StatusOK, RedeemResponse{Granted: true, Role: dashboardEntryRole, Token: token, User: user})
}
