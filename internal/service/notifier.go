package service

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/iliyamo/festplanner/internal/mail"
	"github.com/iliyamo/festplanner/internal/queue"
)

// Notifier queues mail events and falls back to sending inline when no
// broker is configured or publishing fails.  It also implements
// queue.Handler, so the consumer and the fallback share one delivery path.
type Notifier struct {
	pub    EventPublisher
	mailer *mail.Mailer
	log    *log.Logger
}

// NewNotifier accepts a nil publisher.
func NewNotifier(pub EventPublisher, mailer *mail.Mailer, logger *log.Logger) *Notifier {
	n := &Notifier{mailer: mailer, log: logger}
	if p, ok := pub.(*Publisher); !ok || p != nil {
		n.pub = pub
	}
	return n
}

// OTPRequested announces a new sign-in code.
func (n *Notifier) OTPRequested(ctx context.Context, ev queue.OTPRequested) error {
	if n.publish(ctx, queue.OTPQueue, ev) {
		return nil
	}
	return n.DeliverOTP(ctx, ev)
}

// InvitationCreated announces a new trip invitation.
func (n *Notifier) InvitationCreated(ctx context.Context, ev queue.InvitationCreated) error {
	if n.publish(ctx, queue.InvitationQueue, ev) {
		return nil
	}
	return n.DeliverInvitation(ctx, ev)
}

func (n *Notifier) publish(ctx context.Context, q string, ev any) bool {
	if n.pub == nil {
		return false
	}
	if err := n.pub.Publish(ctx, q, ev); err != nil {
		n.log.Warn("publish failed, sending inline", "queue", q, "err", err)
		return false
	}
	return true
}

// DeliverOTP sends the sign-in code email.
func (n *Notifier) DeliverOTP(ctx context.Context, ev queue.OTPRequested) error {
	return n.mailer.SendOTP(ctx, ev.Email, ev.Code, ev.ExpiresAt)
}

// DeliverInvitation sends the trip invitation email.
func (n *Notifier) DeliverInvitation(ctx context.Context, ev queue.InvitationCreated) error {
	_, err := n.mailer.SendInvitation(ctx, mail.Invitation{
		Email:       ev.Email,
		TripID:      ev.TripID,
		TripName:    ev.TripName,
		InviterName: ev.InviterName,
		Token:       ev.Token,
	})
	return err
}
