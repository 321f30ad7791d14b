// Package push delivers notifications to registered recipients: one at a
// time through the dispatcher, or to everyone through a broadcast.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/go-push-relay/internal/config"
	"github.com/go-push-relay/internal/domain"
	"github.com/go-push-relay/internal/infrastructure/webpush"
)

// Service is the external surface of the push subsystem.
type Service interface {
	Register(ctx context.Context, recipientID string, sub domain.PushSubscription) error
	Unregister(ctx context.Context, recipientID string) error
	GetSubscription(ctx context.Context, recipientID string) (*domain.SubscriptionRecord, error)
	SendToOne(ctx context.Context, recipientID string, fields domain.NotificationFields) error
	SendToAll(ctx context.Context, fields domain.NotificationFields) (*domain.BroadcastReport, error)
	PublicKey() (string, error)
	HealthCheck(ctx context.Context) domain.Health
}

type registry interface {
	Put(ctx context.Context, recipientID string, sub domain.PushSubscription) error
	Remove(ctx context.Context, recipientID string) error
	Get(ctx context.Context, recipientID string) (*domain.SubscriptionRecord, error)
	ListAll(ctx context.Context) (iter.Seq2[string, domain.PushSubscription], error)
	Count(ctx context.Context) (int, error)
}

type relay interface {
	Send(ctx context.Context, endpoint string, body []byte, authorization string) (*webpush.Response, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ReportPublisher receives every finished broadcast report.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *domain.BroadcastReport) error
}

// Deps wires the service. Keys may be nil when the sender key pair is not
// configured; sends then fail with domain.ErrMissingServerKeys. Publisher
// is optional.
type Deps struct {
	Registry  registry
	Relay     relay
	Store     pinger
	Keys      *webpush.Keys
	Subject   string
	Push      config.PushConfig
	Publisher ReportPublisher
	Logger    *slog.Logger
}

type service struct {
	registry  registry
	relay     relay
	store     pinger
	keys      *webpush.Keys
	subject   string
	defaults  config.NotificationDefaults
	workers   int
	publisher ReportPublisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(d Deps) Service {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	workers := d.Push.BroadcastWorkers
	if workers < 1 {
		workers = 1
	}
	return &service{
		registry:  d.Registry,
		relay:     d.Relay,
		store:     d.Store,
		keys:      d.Keys,
		subject:   d.Subject,
		defaults:  d.Push.Defaults,
		workers:   workers,
		publisher: d.Publisher,
		log:       log,
		now:       time.Now,
	}
}

func (s *service) Register(ctx context.Context, recipientID string, sub domain.PushSubscription) error {
	return s.registry.Put(ctx, recipientID, sub)
}

func (s *service) Unregister(ctx context.Context, recipientID string) error {
	return s.registry.Remove(ctx, recipientID)
}

func (s *service) GetSubscription(ctx context.Context, recipientID string) (*domain.SubscriptionRecord, error) {
	return s.registry.Get(ctx, recipientID)
}

func (s *service) PublicKey() (string, error) {
	if s.keys == nil {
		return "", domain.ErrMissingServerKeys
	}
	return s.keys.PublicKey(), nil
}

func (s *service) HealthCheck(ctx context.Context) domain.Health {
	h := domain.Health{KeysConfigured: s.keys != nil}
	if s.store == nil {
		return h
	}
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("store ping failed", "err", err)
		return h
	}
	h.StoreConfigured = true
	n, err := s.registry.Count(ctx)
	if err != nil {
		s.log.Warn("count recipients failed", "err", err)
		return h
	}
	h.RecipientCount = n
	return h
}

// SendToOne performs a single delivery attempt to recipientID.
func (s *service) SendToOne(ctx context.Context, recipientID string, fields domain.NotificationFields) error {
	if s.keys == nil {
		return domain.ErrMissingServerKeys
	}
	rec, err := s.registry.Get(ctx, recipientID)
	if err != nil {
		return err
	}
	payload, err := s.payload(fields)
	if err != nil {
		return err
	}
	return s.deliver(ctx, recipientID, rec.Subscription, payload)
}

// payload fills empty fields from the configured defaults and serializes
// the result.
func (s *service) payload(f domain.NotificationFields) ([]byte, error) {
	p := domain.NotificationPayload{
		Title:      orDefault(f.Title, s.defaults.Title),
		Body:       orDefault(f.Body, s.defaults.Body),
		Icon:       orDefault(f.Icon, s.defaults.Icon),
		Badge:      orDefault(f.Badge, s.defaults.Badge),
		Tag:        orDefault(f.Tag, s.defaults.Tag),
		URL:        orDefault(f.URL, s.defaults.URL),
		Timestamp:  s.now().UnixMilli(),
		BadgeCount: f.BadgeCount,
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return b, nil
}

// deliver encrypts payload for sub, signs a token for the relay origin and
// interprets the relay's answer. A gone subscription is pruned.
func (s *service) deliver(ctx context.Context, recipientID string, sub domain.PushSubscription, payload []byte) error {
	body, err := webpush.Encrypt(payload, sub.P256dh, sub.Auth)
	if err != nil {
		return err
	}
	origin, err := webpush.Origin(sub.Endpoint)
	if err != nil {
		return err
	}
	tok, err := s.keys.IssueToken(origin, s.subject, s.now())
	if err != nil {
		return err
	}

	resp, err := s.relay.Send(ctx, sub.Endpoint, body, tok.Authorization())
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrDeliveryFailed)
	}
	switch {
	case resp.OK():
		return nil
	case resp.Gone():
		if err := s.registry.Remove(ctx, recipientID); err != nil {
			s.log.Warn("prune expired subscription failed", "recipient", recipientID, "err", err)
		}
		s.log.Info("pruned expired subscription", "recipient", recipientID, "status", resp.StatusCode)
		return fmt.Errorf("recipient %q: %w", recipientID, domain.ErrExpired)
	default:
		return &domain.DeliveryError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
