package model

import (
	"github.com/Gonmore/fprax-gateway/internal/domain/enums"
)

type User struct {
	ID       int64        `json:"id"`
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Role     enums.Role   `json:"role"`
	Roles    []enums.Role `json:"roles,omitempty"`
	Picture  string       `json:"picture,omitempty"`
}

// AvailableRoles lists every role the user may act as: the primary role
// plus any additional role profiles, without duplicates.
func (u User) AvailableRoles() []enums.Role {
	seen := make(map[enums.Role]struct{})
	var roles []enums.Role

	add := func(r enums.Role) {
		if !r.Valid() {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}

	add(u.Role)
	for _, r := range u.Roles {
		add(r)
	}

	return roles
}
