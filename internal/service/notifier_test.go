package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festplanner/internal/logging"
	"github.com/iliyamo/festplanner/internal/mail"
	"github.com/iliyamo/festplanner/internal/queue"
)

type fakePublisher struct {
	err    error
	queues []string
}

func (f *fakePublisher) Publish(_ context.Context, q string, _ any) error {
	f.queues = append(f.queues, q)
	return f.err
}

type recordingSender struct{ sent []mail.Message }

func (r *recordingSender) Send(_ context.Context, m mail.Message) (json.RawMessage, error) {
	r.sent = append(r.sent, m)
	return nil, nil
}

func newNotifier(pub EventPublisher) (*Notifier, *recordingSender) {
	rec := &recordingSender{}
	return NewNotifier(pub, mail.NewMailer(rec, "https://fest.example"), logging.Discard()), rec
}

func TestNotifierPublishes(t *testing.T) {
	pub := &fakePublisher{}
	n, rec := newNotifier(pub)

	require.NoError(t, n.OTPRequested(context.Background(), queue.OTPRequested{Email: "a@b.c", Code: "1"}))
	require.NoError(t, n.InvitationCreated(context.Background(), queue.InvitationCreated{Email: "a@b.c"}))

	assert.Equal(t, []string{queue.OTPQueue, queue.InvitationQueue}, pub.queues)
	assert.Empty(t, rec.sent)
}

func TestNotifierFallsBackOnPublishError(t *testing.T) {
	n, rec := newNotifier(&fakePublisher{err: errors.New("broker down")})

	err := n.OTPRequested(context.Background(), queue.OTPRequested{
		Email: "a@b.c", Code: "654321", ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0].HTML, "654321")
}

func TestNotifierWithoutBroker(t *testing.T) {
	n, rec := newNotifier(NewPublisher("", logging.Discard()))
	require.NoError(t, n.InvitationCreated(context.Background(), queue.InvitationCreated{
		Email: "a@b.c", TripID: "t1", TripName: "Trip",
	}))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "You've been invited to join Trip", rec.sent[0].Subject)
}

func TestInvitationEmailCarriesAcceptLink(t *testing.T) {
	n, rec := newNotifier(nil)
	require.NoError(t, n.InvitationCreated(context.Background(), queue.InvitationCreated{
		Email: "a@b.c", TripID: "trip-1", TripName: "Trip", Token: "deadbeef",
	}))
	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0].HTML, `href="https://fest.example/invitations/deadbeef"`)
	assert.NotContains(t, rec.sent[0].HTML, "/trips/trip-1")
}
