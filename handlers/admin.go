package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/studyhive/backend/middleware"
	"github.com/studyhive/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminStore is the store surface for official actions. *store.DB satisfies
// it.
type AdminStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserStatus(ctx context.Context, id primitive.ObjectID, disabled bool) error
	UpdateUserRoles(ctx context.Context, id primitive.ObjectID, roles []models.Role) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	CreateCode(ctx context.Context, c *models.AccessCode) error
	ListCodes(ctx context.Context) ([]models.AccessCode, error)
	InsertAudit(ctx context.Context, entry *models.AuditEntry) error
	ListAudit(ctx context.Context) ([]models.AuditEntry, error)
}

// AdminHandler serves the official-only endpoints: profile lifecycle
// (block/unblock/delete/roles) and the access-code registry.
type AdminHandler struct {
	DB AdminStore
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.DB.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, true, "block-user")
}

func (h *AdminHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, false, "unblock-user")
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request, disabled bool, action string) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.DB.SetUserStatus(r.Context(), id, disabled); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	h.audit(r, action, id.Hex(), "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "user updated"})
}

type UpdateRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1"`
}

func (h *AdminHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req UpdateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		if !writeFieldErrors(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	roles := make([]models.Role, 0, len(req.Roles))
	for _, raw := range req.Roles {
		role, ok := models.ParseRole(strings.TrimSpace(raw))
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown role: "+raw)
			return
		}
		roles = append(roles, role)
	}
	if err := h.DB.UpdateUserRoles(r.Context(), id, roles); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update roles")
		return
	}
	h.audit(r, "update-roles", id.Hex(), strings.Join(req.Roles, ","))
	writeJSON(w, http.StatusOK, map[string]string{"message": "roles updated"})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.DB.DeleteUser(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	h.audit(r, "delete-user", id.Hex(), "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

type CreateCodeRequest struct {
	Code        string `json:"code"`
	Role        string `json:"role" validate:"required"`
	IsSingleUse bool   `json:"isSingleUse"`
	ExpiresAt   string `json:"expiresAt"` // RFC 3339, optional
}

func (h *AdminHandler) CreateCode(w http.ResponseWriter, r *http.Request) {
	var req CreateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		if !writeFieldErrors(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	role, ok := models.ParseRole(strings.TrimSpace(req.Role))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown role: "+req.Role)
		return
	}
	var expiresAt time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expiresAt must be RFC 3339")
			return
		}
		expiresAt = t
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = uuid.New().String()
	}
	c := &models.AccessCode{
		Code:        code,
		Role:        role,
		IsActive:    true,
		IsSingleUse: req.IsSingleUse,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
	if err := h.DB.CreateCode(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create code")
		return
	}
	h.audit(r, "create-code", code, string(role))
	writeJSON(w, http.StatusCreated, c)
}

func (h *AdminHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.DB.ListCodes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list codes")
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.DB.ListAudit(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// audit records the action without failing the request; a lost audit row is
// logged, not surfaced.
func (h *AdminHandler) audit(r *http.Request, action, targetID, detail string) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return
	}
	entry := &models.AuditEntry{
		ActorID:  p.ID,
		Action:   action,
		TargetID: targetID,
		Detail:   detail,
		At:       time.Now(),
	}
	if err := h.DB.InsertAudit(r.Context(), entry); err != nil {
		log.Printf("audit %s: %v", action, err)
	}
}
