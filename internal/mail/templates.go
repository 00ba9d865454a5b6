package mail

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
	"time"
)

var invitationTmpl = template.Must(template.New("invitation").Parse(`
<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
    <h1 style="color: #1e293b;">You've been invited!</h1>
    <p style="color: #475569; font-size: 16px;">
        {{if .InviterName}}<strong>{{.InviterName}}</strong>{{else}}Someone{{end}} has invited you to join the trip <strong>{{.TripName}}</strong> on FestPlanner.
    </p>
    <div style="margin: 30px 0;">
        <a href="{{.Link}}" style="display: inline-block; padding: 12px 24px; background-color: #2563EB; color: white; text-decoration: none; border-radius: 8px; font-weight: bold;">
            Join Trip
        </a>
    </div>
    <p style="color: #64748b; font-size: 14px;">
        Click the button above to accept the invitation. If you don't have an account, you'll be able to create one.
    </p>
</div>
`))

var otpTmpl = template.Must(template.New("otp").Parse(`
<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
    <h1 style="color: #1e293b;">Your FestPlanner sign-in code</h1>
    <p style="font-size: 32px; letter-spacing: 6px; font-weight: bold; color: #2563EB;">{{.Code}}</p>
    <p style="color: #64748b; font-size: 14px;">
        The code expires in {{.Minutes}} minutes. If you did not try to sign in you can ignore this email.
    </p>
</div>
`))

// Invitation holds the values rendered into a trip invitation.  Token is
// the accept token of a stored invitation; the direct invite-user email
// has none.
type Invitation struct {
	Email       string
	TripID      string
	TripName    string
	InviterName string
	Token       string
}

// InvitationLink is the page the invitee lands on: the accept page for a
// stored invitation, otherwise the trip page.
func InvitationLink(publicURL string, inv Invitation) string {
	base := strings.TrimRight(publicURL, "/")
	if inv.Token != "" {
		return base + "/invitations/" + url.PathEscape(inv.Token)
	}
	return base + "/trips/" + url.PathEscape(inv.TripID)
}

// InvitationEmail renders the invitation message.
func InvitationEmail(publicURL string, inv Invitation) (Message, error) {
	var buf bytes.Buffer
	err := invitationTmpl.Execute(&buf, struct {
		Invitation
		Link string
	}{inv, InvitationLink(publicURL, inv)})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{inv.Email},
		Subject: "You've been invited to join " + inv.TripName,
		HTML:    buf.String(),
	}, nil
}

// OTPEmail renders the sign-in code message.  expiresAt is measured
// against now to print the remaining minutes.
func OTPEmail(email, code string, expiresAt, now time.Time) (Message, error) {
	minutes := int(expiresAt.Sub(now).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	var buf bytes.Buffer
	if err := otpTmpl.Execute(&buf, struct {
		Code    string
		Minutes int
	}{code, minutes}); err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{email},
		Subject: "Your FestPlanner sign-in code: " + code,
		HTML:    buf.String(),
	}, nil
}
