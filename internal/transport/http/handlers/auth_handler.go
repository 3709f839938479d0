package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Gonmore/fprax-gateway/internal/backend"
	"github.com/Gonmore/fprax-gateway/internal/domain/enums"
	"github.com/Gonmore/fprax-gateway/internal/domain/model"
	authsvc "github.com/Gonmore/fprax-gateway/internal/services/auth"
	ratesvc "github.com/Gonmore/fprax-gateway/internal/services/rate"
	"github.com/Gonmore/fprax-gateway/internal/session"
	"github.com/Gonmore/fprax-gateway/internal/transport/http/dto"
	httperrors "github.com/Gonmore/fprax-gateway/internal/transport/http/errors"
)

type AuthHandler struct {
	sessions *authsvc.Service
	api      *backend.Client
	limiter  *ratesvc.Limiter
	logger   *zap.Logger
}

func NewAuthHandler(sessions *authsvc.Service, api *backend.Client, limiter *ratesvc.Limiter, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthHandler{
		sessions: sessions,
		api:      api,
		limiter:  limiter,
		logger:   logger,
	}
}

// Login exchanges credentials for a session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	if h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowLogin(r.Context(), clientKey(r))
		if err != nil {
			h.logger.Warn("login rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many login attempts",
				RetryAfterSec: retryAfter,
			})
			return
		}
	}

	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	sid, snap, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	session.SetCookie(w, sid, time.Now().Add(h.sessions.SessionTTL()))
	httperrors.Write(w, http.StatusOK, sessionResponse(snap, snapAvailableRoles(snap)))
}

// SocialRedirect sends the browser to the backend's OAuth entry point
// for the provider named in the route.
func (h *AuthHandler) SocialRedirect(w http.ResponseWriter, r *http.Request) {
	provider := enums.SocialProvider(chi.URLParam(r, "provider"))

	target, err := h.api.SocialLoginURL(provider)
	if err != nil {
		http.Redirect(w, r, "/login?error=unknown_provider", http.StatusFound)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles the backend's post-OAuth redirect. The query carries
// either token plus a URL-encoded user JSON, or an error reason.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if reason := query.Get("error"); reason != "" {
		http.Redirect(w, r, "/login?error="+url.QueryEscape(reason), http.StatusFound)
		return
	}

	tok := query.Get("token")
	rawUser := query.Get("user")
	if tok == "" || rawUser == "" {
		http.Redirect(w, r, "/login?error=invalid_callback", http.StatusFound)
		return
	}

	var user model.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		h.logger.Debug("social callback user payload unreadable", zap.Error(err))
		http.Redirect(w, r, "/login?error=invalid_callback", http.StatusFound)
		return
	}

	sid, _, err := h.sessions.LoginSocial(r.Context(), user, tok)
	if err != nil {
		h.logger.Warn("social login failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=invalid_callback", http.StatusFound)
		return
	}

	session.SetCookie(w, sid, time.Now().Add(h.sessions.SessionTTL()))
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout clears the session and the cookie, then lands on the login
// page. Logging out without a session is fine.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid, ok := session.SIDFromRequest(r); ok {
		if err := h.sessions.Logout(r.Context(), sid); err != nil {
			h.logger.Warn("logout failed", zap.Error(err))
		}
	}
	session.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Session reports the authenticated identity behind the cookie.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	roles, err := h.sessions.AvailableRoles(r.Context(), identity.SID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load session roles")
		return
	}
	httperrors.Write(w, http.StatusOK, sessionResponse(identity.Snapshot, roles))
}

// SwitchRole changes the role the session acts as.
func (h *AuthHandler) SwitchRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.SwitchRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	role := enums.Role(req.Role)
	if !role.Valid() {
		writeBadRequest(w, "VALIDATION_ERROR", "unknown role")
		return
	}

	if err := h.sessions.SetActiveRole(r.Context(), identity.SID, role); err != nil {
		switch {
		case errors.Is(err, authsvc.ErrRoleNotAvailable):
			writeForbidden(w, "ROLE_NOT_AVAILABLE", "role is not available for this user")
		case errors.Is(err, authsvc.ErrSessionNotFound):
			writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to switch role")
		}
		return
	}

	snap, err := h.sessions.Current(r.Context(), identity.SID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to reload session")
		return
	}
	httperrors.Write(w, http.StatusOK, sessionResponse(snap, snapAvailableRoles(snap)))
}

func handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authsvc.ErrInvalidInput):
		writeBadRequest(w, "VALIDATION_ERROR", "email and password are required")
	case errors.Is(err, backend.ErrInvalidCredentials):
		writeUnauthorized(w, "INVALID_CREDENTIALS", "invalid email or password")
	default:
		writeInternal(w, "INTERNAL_ERROR", "login failed")
	}
}

func sessionResponse(snap session.Snapshot, roles []enums.Role) dto.SessionResponse {
	res := dto.SessionResponse{
		Authenticated: snap.Authenticated(time.Now()),
		ActiveRole:    string(snap.Role()),
	}
	for _, role := range roles {
		res.AvailableRoles = append(res.AvailableRoles, string(role))
	}
	if user := snap.State.User; user != nil {
		res.User = &dto.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     string(user.Role),
			Picture:  user.Picture,
		}
	}
	return res
}

func snapAvailableRoles(snap session.Snapshot) []enums.Role {
	if snap.State.User == nil {
		return nil
	}
	return snap.State.User.AvailableRoles()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}
