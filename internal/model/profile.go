package model

import "time"

// Profile roles.  Admins and superadmins manage the festival catalogue;
// superadmins can additionally promote other users.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// Profile represents an application user as stored in the `profiles`
// table.  Accounts are created on first successful passcode login, so a
// profile has no password column.
//
// Fields:
//
//	ID          – UUID primary key.
//	Email       – unique, lower-cased email address.
//	DisplayName – optional name shown to other trip members.
//	Role        – user, admin or superadmin.
//	CreatedAt   – timestamp of creation.
type Profile struct {
	ID          string    `json:"id"`                     // profiles.id
	Email       string    `json:"email"`                  // profiles.email
	DisplayName *string   `json:"display_name,omitempty"` // profiles.display_name (nullable)
	Role        string    `json:"role"`                   // profiles.role
	CreatedAt   time.Time `json:"created_at"`             // profiles.created_at
}

// IsAdmin reports whether the profile may manage festivals and bands.
func (p Profile) IsAdmin() bool { return IsAdminRole(p.Role) }

// IsAdminRole reports whether role grants catalogue management.
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// OTPCode models an entry in the `otp_codes` table.  Only the bcrypt hash
// of the six digit code is stored.
type OTPCode struct {
	ID         string     // otp_codes.id
	Email      string     // otp_codes.email
	CodeHash   string     // otp_codes.code_hash
	ExpiresAt  time.Time  // otp_codes.expires_at
	Attempts   int        // otp_codes.attempts
	ConsumedAt *time.Time // otp_codes.consumed_at (nullable)
	CreatedAt  time.Time  // otp_codes.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
	ID        string     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
