package model

import "time"

// Trip member roles and statuses.
const (
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"

	MemberPending  = "pending"
	MemberAccepted = "accepted"

	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
)

// Trip is a group plan linking members to a festival for collaborative
// show voting.
type Trip struct {
	ID          string           `json:"id"`                    // trips.id
	Name        string           `json:"name"`                  // trips.name
	Description *string          `json:"description,omitempty"` // trips.description
	FestivalID  *string          `json:"festival_id,omitempty"` // trips.festival_id (nullable)
	CreatedBy   string           `json:"created_by"`            // trips.created_by
	CreatedAt   time.Time        `json:"created_at"`            // trips.created_at
	Festival    *FestivalSummary `json:"festival,omitempty"`    // joined from festivals
}

// TripMember links a user, or an invited email without an account yet, to
// a trip.
type TripMember struct {
	ID        string    `json:"id"`                // trip_members.id
	TripID    string    `json:"trip_id"`           // trip_members.trip_id
	UserID    *string   `json:"user_id,omitempty"` // trip_members.user_id (nullable)
	Email     *string   `json:"email,omitempty"`   // trip_members.email or profiles.email
	Role      string    `json:"role"`              // trip_members.role
	Status    string    `json:"status"`            // trip_members.status
	CreatedAt time.Time `json:"created_at"`        // trip_members.created_at
}

// TripInvitation is an emailed invitation carrying a random link token.
type TripInvitation struct {
	ID        string    `json:"id"`         // trip_invitations.id
	TripID    string    `json:"trip_id"`    // trip_invitations.trip_id
	Email     string    `json:"email"`      // trip_invitations.email
	Token     string    `json:"-"`          // trip_invitations.token
	Status    string    `json:"status"`     // trip_invitations.status
	InvitedBy string    `json:"invited_by"` // trip_invitations.invited_by
	CreatedAt time.Time `json:"created_at"` // trip_invitations.created_at
}

// PendingInvitation is an open invitation as its recipient sees it.  The
// token is what POST /v1/invitations/:token/accept expects.
type PendingInvitation struct {
	ID          string    `json:"id"`
	TripID      string    `json:"trip_id"`
	TripName    string    `json:"trip_name"`
	Token       string    `json:"token"`
	InvitedBy   string    `json:"invited_by"`
	InviterName string    `json:"inviter_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Rating is one member's 1..10 score for a show within a trip, stored in
// `show_interactions`.
type Rating struct {
	ID        string    `json:"id"`         // show_interactions.id
	TripID    string    `json:"trip_id"`    // show_interactions.trip_id
	ShowID    string    `json:"show_id"`    // show_interactions.show_id
	UserID    string    `json:"user_id"`    // show_interactions.user_id
	Rating    int       `json:"rating"`     // show_interactions.rating
	CreatedAt time.Time `json:"created_at"` // show_interactions.created_at
	UpdatedAt time.Time `json:"updated_at"` // show_interactions.updated_at
}
