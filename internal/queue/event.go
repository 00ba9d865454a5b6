// Package queue defines the mail events exchanged over the message broker
// and the background consumer that delivers them.
package queue

import "time"

// Queue names.  Both queues are durable.
const (
	OTPQueue        = "auth.otp"
	InvitationQueue = "trip.invitation"
)

// OTPRequested is published when a user asks for a sign-in code.  The code
// travels in clear text so the consumer can render it; the database only
// keeps its hash.
type OTPRequested struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvitationCreated is published when a trip admin invites someone by email.
type InvitationCreated struct {
	Email       string `json:"email"`
	TripID      string `json:"trip_id"`
	TripName    string `json:"trip_name"`
	InviterName string `json:"inviter_name"`
	Token       string `json:"token"`
}
