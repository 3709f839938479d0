// Package session defines the persisted session snapshot and its
// transport. A snapshot is always written and read as one JSON blob so
// readers never observe a torn mix of old and new fields.
package session

import (
	"time"

	"github.com/Gonmore/fprax-gateway/internal/domain/enums"
	"github.com/Gonmore/fprax-gateway/internal/domain/model"
	"github.com/Gonmore/fprax-gateway/internal/token"
)

// Snapshot is the unit of persistence. The state envelope matches the
// layout the web client keeps under its fixed storage key.
type Snapshot struct {
	State State `json:"state"`
}

type State struct {
	User       *model.User `json:"user"`
	Token      string      `json:"token"`
	ActiveRole enums.Role  `json:"active_role,omitempty"`
}

// Authenticated reports whether the snapshot represents a logged-in
// user: user and token present and the token not locally expired.
func (s Snapshot) Authenticated(now time.Time) bool {
	if s.State.User == nil || s.State.Token == "" {
		return false
	}
	return !token.Expired(s.State.Token, now)
}

// Role returns the role the session currently acts as, preferring an
// explicit role switch over the user's primary role.
func (s Snapshot) Role() enums.Role {
	if s.State.ActiveRole != "" {
		return s.State.ActiveRole
	}
	if s.State.User != nil {
		return s.State.User.Role
	}
	return ""
}
