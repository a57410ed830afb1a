package types

import "time"

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an application account. PasswordHash is a bcrypt hash; the
// plaintext never leaves the login request.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user may perform destructive operations
// (patient deletion, archive purge).
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// TokenPair is the result of a successful login
type TokenPair struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
