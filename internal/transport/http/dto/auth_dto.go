package dto

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SwitchRoleRequest struct {
	Role string `json:"role"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Picture  string `json:"picture,omitempty"`
}

type SessionResponse struct {
	Authenticated  bool          `json:"authenticated"`
	User           *UserResponse `json:"user,omitempty"`
	ActiveRole     string        `json:"active_role,omitempty"`
	AvailableRoles []string      `json:"available_roles,omitempty"`
}

type LogoutResponse struct {
	OK bool `json:"ok"`
}
