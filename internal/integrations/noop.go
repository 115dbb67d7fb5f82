package integrations

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

// ErrDisabled is returned by integrations that are not configured.
var ErrDisabled = errors.New("integration disabled")

// LogMailer logs emails instead of sending them. Used when SES is not configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, _ string, subject, body string) error {
	m.logger.Info("email delivery disabled, dropping message", "subject", subject, "body_length", len(body))
	return nil
}

type NoopProfileSync struct{}

func (NoopProfileSync) UpsertProfile(context.Context, models.ProfilePayload) error { return nil }
func (NoopProfileSync) RecordFact(context.Context, models.FactPayload) error       { return nil }
func (NoopProfileSync) DeleteProfiles(context.Context, string) error               { return nil }
func (NoopProfileSync) TrackEvent(context.Context, models.EventPayload) error      { return nil }

type NoopMarketing struct{}

func (NoopMarketing) CreateContact(context.Context, models.ContactPayload) error { return nil }

// NoopGenerator always fails so callers use their fallback text.
type NoopGenerator struct{}

func (NoopGenerator) Generate(context.Context, string) (string, error) { return "", ErrDisabled }
