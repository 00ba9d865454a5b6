package mail

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iliyamo/festplanner/internal/metrics"
)

// Mailer renders and sends the application's emails.
type Mailer struct {
	sender    Sender
	publicURL string
	now       func() time.Time
}

func NewMailer(sender Sender, publicURL string) *Mailer {
	return &Mailer{sender: sender, publicURL: publicURL, now: time.Now}
}

// SendInvitation renders and delivers a trip invitation.
func (m *Mailer) SendInvitation(ctx context.Context, inv Invitation) (json.RawMessage, error) {
	msg, err := InvitationEmail(m.publicURL, inv)
	if err != nil {
		return nil, err
	}
	data, err := m.sender.Send(ctx, msg)
	metrics.TrackMail("invitation", err)
	return data, err
}

// SendOTP renders and delivers a sign-in code.
func (m *Mailer) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	msg, err := OTPEmail(email, code, expiresAt, m.now())
	if err != nil {
		return err
	}
	_, err = m.sender.Send(ctx, msg)
	metrics.TrackMail("otp", err)
	return err
}
