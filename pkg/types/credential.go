package types

// Roles a registered user may hold.
const (
	RoleNormal = "normal"
	RoleAdmin  = "admin"
)

// Credential is the hashed secret and role attached to a registered user.
// It lives beside the User record, never inside it.
type Credential struct {
	UserID string `json:"user_id"`
	Hash   string `json:"hash,omitempty"`
	Role   string `json:"role"`
}

// RegisteredUser composes a User with its optional credential.
type RegisteredUser struct {
	User
	Credential *Credential `json:"credential,omitempty"`
}

// IsAdmin reports whether the user carries the admin role.
func (r *RegisteredUser) IsAdmin() bool {
	return r.Credential != nil && r.Credential.Role == RoleAdmin
}
