package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/studyhive/backend/middleware"
	"github.com/studyhive/backend/models"
	"github.com/studyhive/backend/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionTTL    = 7 * 24 * time.Hour
	resetTokenTTL = time.Hour
	resetPurpose  = "password-reset"
)

// UserStore is the profile surface the identity handlers need. *store.DB
// satisfies it.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	SetUserPassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type AuthHandler struct {
	DB        UserStore
	JWTSecret string
	Mailer    *service.Mailer
	// AppBaseURL is the public origin used to build password-reset links.
	AppBaseURL string
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		if !writeFieldErrors(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	user, err := h.DB.UserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	token, err := h.sessionToken(user, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create token")
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Token: token, User: user})
}

// Register self-enrolls a new student profile.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		if !writeFieldErrors(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	existing, err := h.DB.UserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already in use")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	now := time.Now()
	user := &models.User{
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hash),
		Roles:     []models.Role{models.RoleStudent},
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := h.DB.CreateUser(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	user.ID = id
	token, err := h.sessionToken(user, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create token")
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{Token: token, User: user})
}

// Anonymous issues a session with a fresh anonymous profile and no roles.
// Roles for anonymous principals come from access-code redemption.
func (h *AuthHandler) Anonymous(w http.ResponseWriter, r *http.Request) {
	user, token, err := IssueAnonymousSession(r.Context(), h.DB, h.JWTSecret, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{Token: token, User: user})
}

// Logout acknowledges sign-out. Sessions are stateless tokens, so the client
// discarding the token is the actual sign-out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// Me returns the current session's principal and profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	user, err := h.DB.UserByID(r.Context(), p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword always answers 202 so the endpoint cannot be used to probe
// which addresses have accounts.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		if !writeFieldErrors(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	user, err := h.DB.UserByEmail(r.Context(), req.Email)
	if err == nil && user != nil && h.Mailer != nil {
		if token, terr := h.resetToken(user.ID.Hex()); terr == nil {
			resetURL := strings.TrimRight(h.AppBaseURL, "/") + "/reset-password?token=" + token
			if merr := h.Mailer.SendPasswordReset(user.Email, resetURL); merr != nil {
				log.Printf("password reset mail: %v", merr)
			}
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if that address has an account, a reset email is on its way",
	})
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
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
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(req.Token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.JWTSecret), nil
	})
	if err != nil || !token.Valid || claims.Subject == "" || len(claims.Audience) != 1 || claims.Audience[0] != resetPurpose {
		writeError(w, http.StatusUnauthorized, "invalid or expired reset token")
		return
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid reset token")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not reset password")
		return
	}
	if err := h.DB.SetUserPassword(r.Context(), id, string(hash)); err != nil {
		writeError(w, http.StatusInternalServerError, "could not reset password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *AuthHandler) sessionToken(user *models.User, anonymous bool) (string, error) {
	return SessionToken(h.JWTSecret, user, anonymous)
}

func (h *AuthHandler) resetToken(userID string) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{resetPurpose},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(resetTokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.JWTSecret))
}

// SessionToken signs a session for the given profile.
func SessionToken(secret string, user *models.User, anonymous bool) (string, error) {
	claims := &middleware.Claims{
		UserID:    user.ID.Hex(),
		Email:     user.Email,
		Name:      user.Name,
		Anonymous: anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// IssueAnonymousSession creates a fresh anonymous profile (with the given
// roles, which may be empty) and signs a session for it.
func IssueAnonymousSession(ctx context.Context, db UserStore, secret string, roles []models.Role) (*models.User, string, error) {
	if roles == nil {
		roles = []models.Role{}
	}
	now := time.Now()
	user := &models.User{
		Name:      "Guest",
		Roles:     roles,
		Status:    models.StatusActive,
		Anonymous: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := db.CreateUser(ctx, user)
	if err != nil {
		return nil, "", err
	}
	user.ID = id
	token, err := SessionToken(secret, user, true)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
