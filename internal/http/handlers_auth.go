package httpx

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/service"
)

// Login results reported to LoginObserver.
const (
	loginResultSuccess   = "success"
	loginResultInvalid   = "invalid"
	loginResultNoProfile = "no_profile"
	loginResultStale     = "stale"
	loginResultError     = "error"
)

// SessionService is the SessionManager surface used by the HTTP layer.
type SessionService interface {
	SessionReader
	Login(ctx context.Context, creds domainauth.Credentials) (*service.LoginOutcome, error)
	Current(ctx context.Context, sessionID string) (service.Snapshot, error)
	Logout(ctx context.Context, sessionID string) error
}

// LoginObserver receives the result of every login attempt.
type LoginObserver interface {
	ObserveLogin(result string)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          SessionService
	CookieDomain string
	Observer     LoginObserver
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login signs the user in.
// POST /auth/login with a JSON or form body {login, password}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
			return
		}
		req.Login = r.PostFormValue("login")
		req.Password = r.PostFormValue("password")
	default:
		if !DecodeJSON(w, r, &req) {
			return
		}
	}

	outcome, err := h.Svc.Login(r.Context(), domainauth.Credentials{Login: req.Login, Password: req.Password})
	if err != nil {
		result := loginResult(err)
		h.observe(result)
		if result != loginResultError {
			// Callers only learn that sign-in failed, never that the password was right.
			err = service.ErrInvalidCredentials
		}
		WriteServiceError(w, r, err)
		return
	}
	h.observe(loginResultSuccess)

	h.setSessionCookie(w, r, outcome.Session)
	WriteJSON(w, http.StatusOK, outcome)
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return loginResultInvalid
	case errors.Is(err, service.ErrNoProfile):
		return loginResultNoProfile
	case errors.Is(err, service.ErrStaleLogin):
		return loginResultStale
	default:
		return loginResultError
	}
}

func (h *AuthHandlers) observe(result string) {
	if h.Observer != nil {
		h.Observer.ObserveLogin(result)
	}
}

// Logout ends the session and clears the cookie. It always succeeds for the client.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id := cookieValue(r, SessionCookieName); id != "" {
		if err := h.Svc.Logout(r.Context(), id); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.clearSessionCookie(w, r)
	WriteJSON(w, http.StatusOK, map[string]string{
		"state":    string(domainauth.StateUnauthenticated),
		"redirect": domainauth.EntryPath,
	})
}

// Status returns the current authentication snapshot.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id := cookieValue(r, SessionCookieName)
	snap, err := h.Svc.Current(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if id != "" && !snap.Authenticated() {
		h.clearSessionCookie(w, r)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"state":         snap.State,
		"loading":       snap.Loading,
		"authenticated": snap.Authenticated(),
		"identity":      snap.Identity,
		"profile":       snap.Profile,
		"expires_at":    snap.ExpiresAt,
	})
}

// Entry sends authenticated users to their default screen.
// GET /login.
func (h *AuthHandlers) Entry(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Svc.Current(r.Context(), cookieValue(r, SessionCookieName))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if snap.Authenticated() && snap.Profile != nil {
		http.Redirect(w, r, domainauth.DefaultRedirect(snap.Profile.Role), http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"state": string(domainauth.StateUnauthenticated)})
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearSessionCookie mirrors the attributes used when setting the cookie.
func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
