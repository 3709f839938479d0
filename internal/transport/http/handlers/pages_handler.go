package handlers

import (
	"fmt"
	"html"
	"net/http"

	authsvc "github.com/Gonmore/fprax-gateway/internal/services/auth"
)

// PagesHandler serves the minimal HTML shells behind the guarded
// routes. The pages are deliberately bare; the product logic lives in
// the session, guard and fetch layers.
type PagesHandler struct{}

func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

func (h *PagesHandler) Login(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	notice := ""
	if query.Get("expired") == "true" {
		notice = `<p class="notice">Your session has expired, please log in again.</p>`
	} else if reason := query.Get("error"); reason != "" {
		notice = `<p class="notice">Login failed.</p>`
	}

	writePage(w, "Login", notice+`<form method="post" action="/login"></form>`)
}

func (h *PagesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	name := ""
	if user := identity.Snapshot.State.User; user != nil {
		name = user.Username
	}
	writePage(w, "Dashboard", fmt.Sprintf(`<p>Welcome, %s (%s)</p>`, html.EscapeString(name), identity.Snapshot.Role()))
}

func (h *PagesHandler) Unauthorized(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	writeBody(w, "Unauthorized", `<p>You do not have access to this page.</p>`)
}

func (h *PagesHandler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writePage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	writeBody(w, title, body)
}

func writeBody(w http.ResponseWriter, title, body string) {
	_, _ = fmt.Fprintf(w, "<!doctype html><html><head><title>%s</title></head><body>%s</body></html>", title, body)
}
