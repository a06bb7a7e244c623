package pushnotification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/missionctl/missionctl/internal/config"
	"github.com/missionctl/missionctl/internal/pushsubscription"
)

const notificationTTL = 86400

type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

type Sender struct {
	vapidEnv   *config.VAPIDEnv
	repo       pushsubscription.Repository
	httpClient webpush.HTTPClient
}

type SenderOption func(*Sender)

func WithHTTPClient(c webpush.HTTPClient) SenderOption {
	return func(s *Sender) { s.httpClient = c }
}

func NewSender(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository, opts ...SenderOption) *Sender {
	s := &Sender{
		vapidEnv:   vapidEnv,
		repo:       repo,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) Configured() bool {
	return s.vapidEnv.VAPIDPrivateKey != "" && s.vapidEnv.VAPIDPublicKey != ""
}

// SendToAll pushes payload to every subscription and returns how many
// deliveries were accepted. Expired subscriptions are removed.
func (s *Sender) SendToAll(ctx context.Context, payload *NotificationPayload) int {
	if !s.Configured() {
		slog.WarnContext(ctx, "push notification: VAPID keys not configured, skipping")
		return 0
	}

	subs, err := s.repo.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to list subscriptions", "error", err)
		return 0
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to marshal payload", "error", err)
		return 0
	}

	sent := 0
	for _, sub := range subs {
		if s.sendToSubscription(ctx, sub, data) {
			sent++
		}
	}
	return sent
}

func (s *Sender) sendToSubscription(ctx context.Context, sub *pushsubscription.Subscription, data []byte) bool {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, wpSub, &webpush.Options{
		HTTPClient:      s.httpClient,
		VAPIDPublicKey:  s.vapidEnv.VAPIDPublicKey,
		VAPIDPrivateKey: s.vapidEnv.VAPIDPrivateKey,
		Subscriber:      s.vapidEnv.VAPIDContact,
		TTL:             notificationTTL,
	})
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to send", "endpoint", sub.Endpoint, "error", err)
		return false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		slog.InfoContext(ctx, "push notification: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := s.repo.Delete(ctx, sub.ID); err != nil {
			slog.ErrorContext(ctx, "push notification: failed to delete expired subscription", "id", sub.ID, "error", err)
		}
		return false
	case resp.StatusCode >= 400:
		slog.WarnContext(ctx, "push notification: unexpected status", "endpoint", sub.Endpoint, "status", resp.StatusCode)
		return false
	}
	return true
}
