package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/studyhive/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outcome is what the access gate decides for a protected route.
type Outcome int

const (
	Allow Outcome = iota
	RedirectEntry
	RedirectHome
)

// Denial reasons surfaced to the caller alongside the redirect target.
type Reason string

const (
	ReasonNotAuthenticated Reason = "not-authenticated"
	ReasonProfileNotFound  Reason = "profile-not-found"
	ReasonAccountDisabled  Reason = "account-disabled"
	ReasonAccessDenied     Reason = "access-denied"
)

type Decision struct {
	Outcome  Outcome
	Reason   Reason
	Redirect string
}

// EntryPath is the public entry surface for a role.
func EntryPath(role models.Role) string {
	return "/help/" + string(role)
}

const homePath = "/"

// Evaluate is the gate's decision function. Checks run in a fixed order: no
// principal, then missing profile, then disabled account, then role
// membership. It is evaluated fresh on every request, so a profile change
// (say an official blocking the account) takes effect on the next request.
func Evaluate(p *Principal, profile *models.User, required models.Role) Decision {
	if p == nil {
		return Decision{Outcome: RedirectEntry, Reason: ReasonNotAuthenticated, Redirect: EntryPath(required)}
	}
	if profile == nil {
		return Decision{Outcome: RedirectEntry, Reason: ReasonProfileNotFound, Redirect: EntryPath(required)}
	}
	if profile.Disabled || profile.Status == models.StatusBlocked {
		return Decision{Outcome: RedirectHome, Reason: ReasonAccountDisabled, Redirect: homePath}
	}
	if !profile.HasRole(required) && !profile.HasRole(models.RoleAdmin) {
		return Decision{Outcome: RedirectHome, Reason: ReasonAccessDenied, Redirect: homePath}
	}
	return Decision{Outcome: Allow}
}

// ProfileLoader is the narrow store surface the gate needs. *store.DB
// satisfies it.
type ProfileLoader interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// RequireRole gates a route group on a role tag. The profile is re-read from
// the store each request; a denial returns JSON carrying the reason and the
// redirect target instead of the protected payload.
func RequireRole(profiles ProfileLoader, role models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFromContext(r.Context())
			var profile *models.User
			if p != nil {
				var err error
				profile, err = profiles.UserByID(r.Context(), p.ID)
				if err != nil {
					http.Error(w, `{"error":"could not load profile"}`, http.StatusInternalServerError)
					return
				}
			}
			d := Evaluate(p, profile, role)
			if d.Outcome != Allow {
				writeDenial(w, d)
				return
			}
			ctx := context.WithValue(r.Context(), profileKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireProfile gates a route on having any live profile, with no role
// requirement. Content routes use it: any signed-in role may read and write
// content, and ownership is checked at the handler.
func RequireProfile(profiles ProfileLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFromContext(r.Context())
			if p == nil {
				writeDenial(w, Decision{Outcome: RedirectHome, Reason: ReasonNotAuthenticated, Redirect: homePath})
				return
			}
			profile, err := profiles.UserByID(r.Context(), p.ID)
			if err != nil {
				http.Error(w, `{"error":"could not load profile"}`, http.StatusInternalServerError)
				return
			}
			if profile == nil {
				writeDenial(w, Decision{Outcome: RedirectHome, Reason: ReasonProfileNotFound, Redirect: homePath})
				return
			}
			if profile.Disabled || profile.Status == models.StatusBlocked {
				writeDenial(w, Decision{Outcome: RedirectHome, Reason: ReasonAccountDisabled, Redirect: homePath})
				return
			}
			ctx := context.WithValue(r.Context(), profileKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileFromContext returns the profile loaded by RequireRole.
func ProfileFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(profileKey).(*models.User)
	return u, ok
}

func writeDenial(w http.ResponseWriter, d Decision) {
	status := http.StatusForbidden
	if d.Reason == ReasonNotAuthenticated || d.Reason == ReasonProfileNotFound {
		status = http.StatusUnauthorized
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"reason":   string(d.Reason),
		"redirect": d.Redirect,
	})
}
