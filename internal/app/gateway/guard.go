package gateway

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Gonmore/fprax-gateway/internal/domain/enums"
	authsvc "github.com/Gonmore/fprax-gateway/internal/services/auth"
	"github.com/Gonmore/fprax-gateway/internal/session"
	httperrors "github.com/Gonmore/fprax-gateway/internal/transport/http/errors"
)

// Predicate decides whether a request may pass given the resolved
// session state.
type Predicate func(authenticated bool, role enums.Role) bool

// RedirectResolver names the redirect target for a denied page request.
type RedirectResolver func(authenticated bool, role enums.Role) string

// GuardSpec is one route-protection rule: an allow predicate plus how
// to answer a denial. JSON guards answer 401/403 envelopes, page
// guards redirect.
type GuardSpec struct {
	Allow    Predicate
	Redirect RedirectResolver
	JSON     bool
}

// Guard resolves the session behind the cookie and enforces guard
// specs. No guarded content is produced before the check completes,
// and every resolution failure fails closed to unauthenticated.
type Guard struct {
	sessions *authsvc.Service
	logger   *zap.Logger
	now      func() time.Time
}

func NewGuard(sessions *authsvc.Service, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Guard{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// RequireAuth admits any authenticated session; everyone else lands on
// the login page.
func (g *Guard) RequireAuth() func(http.Handler) http.Handler {
	return g.Middleware(GuardSpec{
		Allow:    func(authenticated bool, _ enums.Role) bool { return authenticated },
		Redirect: func(bool, enums.Role) string { return "/login" },
	})
}

// RedirectIfAuthenticated keeps logged-in users away from entry pages
// like the login form.
func (g *Guard) RedirectIfAuthenticated() func(http.Handler) http.Handler {
	return g.Middleware(GuardSpec{
		Allow:    func(authenticated bool, _ enums.Role) bool { return !authenticated },
		Redirect: func(bool, enums.Role) string { return "/dashboard" },
	})
}

// RequireRoles admits authenticated sessions acting as one of the
// allowed roles. The unauthenticated land on login, the wrong-role on
// the unauthorized page.
func (g *Guard) RequireRoles(roles ...enums.Role) func(http.Handler) http.Handler {
	return g.Middleware(GuardSpec{
		Allow: roleAllowed(roles),
		Redirect: func(authenticated bool, _ enums.Role) string {
			if !authenticated {
				return "/login"
			}
			return "/unauthorized"
		},
	})
}

// RequireAuthAPI is RequireAuth for JSON routes: denials answer the
// error envelope instead of redirecting.
func (g *Guard) RequireAuthAPI() func(http.Handler) http.Handler {
	return g.Middleware(GuardSpec{
		Allow: func(authenticated bool, _ enums.Role) bool { return authenticated },
		JSON:  true,
	})
}

// RequireRolesAPI is RequireRoles for JSON routes.
func (g *Guard) RequireRolesAPI(roles ...enums.Role) func(http.Handler) http.Handler {
	return g.Middleware(GuardSpec{
		Allow: roleAllowed(roles),
		JSON:  true,
	})
}

func (g *Guard) Middleware(spec GuardSpec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, _ := session.SIDFromRequest(r)

			var snap session.Snapshot
			authenticated := false
			if sid != "" {
				loaded, err := g.sessions.Current(r.Context(), sid)
				switch {
				case err == nil:
					snap = loaded
					authenticated = snap.Authenticated(g.now())
				case errors.Is(err, authsvc.ErrSessionNotFound):
					// stale cookie, fall through unauthenticated
				default:
					g.logger.Warn("session resolution failed", zap.Error(err))
				}
			}

			role := enums.Role("")
			if authenticated {
				role = snap.Role()
			}

			if spec.Allow(authenticated, role) {
				if authenticated {
					ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{SID: sid, Snapshot: snap})
					r = r.WithContext(ctx)
				}
				next.ServeHTTP(w, r)
				return
			}

			if spec.JSON {
				if !authenticated {
					httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
						Code:    "UNAUTHORIZED",
						Message: "authentication required",
					})
					return
				}
				httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
					Code:    "FORBIDDEN",
					Message: "role not allowed",
				})
				return
			}

			target := spec.Redirect(authenticated, role)
			if !authenticated && sid != "" {
				// Clear the stale session and its cookie before
				// leaving, so the dead state cannot linger.
				if err := g.sessions.Logout(r.Context(), sid); err != nil {
					g.logger.Warn("stale session cleanup failed", zap.Error(err))
				}
				session.ClearCookie(w)
				if g.sessions.ConsumeExpired(r.Context(), sid) {
					target = "/login?expired=true"
				}
			}
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}

func roleAllowed(roles []enums.Role) Predicate {
	return func(authenticated bool, role enums.Role) bool {
		if !authenticated {
			return false
		}
		for _, allowed := range roles {
			if role == allowed {
				return true
			}
		}
		return false
	}
}
