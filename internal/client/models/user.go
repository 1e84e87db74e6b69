// Package models defines the client-side view of SyncBridge backend entities:
// users and sessions, requirement forms with their function / nonfunction
// records, discussion messages and file attachments.
package models

import "time"

// Role is the backend role of an authenticated user.
type Role string

const (
	RoleClient    Role = "client"
	RoleDeveloper Role = "developer"
)

// User is the identity returned by GET /api/v1/auth/me.
type User struct {
	ID          int64  `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// Session is the live authenticated identity plus its bearer credential.
type Session struct {
	User
	Token string
	// ExpiresAt is decoded from the token when it is a JWT; zero otherwise.
	ExpiresAt time.Time
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	AccessToken      string `json:"access_token"`
	Role             Role   `json:"role"`
	LicenseStatus    string `json:"license_status,omitempty"`
	LicenseExpiresAt string `json:"license_expires_at,omitempty"`
}

// RegisterInput is the body of POST /api/v1/auth/register.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	LicenseKey  string `json:"license_key"`
}

// ReactivateInput is the body of POST /api/v1/auth/reactivate.
type ReactivateInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	LicenseKey string `json:"license_key"`
}

// RegisterResult is returned by register and reactivate. Status carries the
// envelope status ("success") so callers can report it verbatim.
type RegisterResult struct {
	Status           string `json:"-"`
	Message          string `json:"-"`
	UserID           int64  `json:"user_id"`
	Role             Role   `json:"role"`
	LicenseStatus    string `json:"license_status,omitempty"`
	LicenseExpiresAt string `json:"license_expires_at,omitempty"`
}
