package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/integrations"
	"github.com/BradenHooton/claimsdesk/internal/models"
)

// Mailer delivers a plain text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ProfileSync mirrors users and facts into the customer-data platform.
type ProfileSync interface {
	UpsertProfile(ctx context.Context, p models.ProfilePayload) error
	RecordFact(ctx context.Context, f models.FactPayload) error
	DeleteProfiles(ctx context.Context, userID string) error
	TrackEvent(ctx context.Context, e models.EventPayload) error
}

type Marketing interface {
	CreateContact(ctx context.Context, p models.ContactPayload) error
}

// TextGenerator writes email bodies from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// permanentError marks a task that will never succeed on retry.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// IsPermanent reports whether retrying the task is pointless: bad payloads,
// unknown kinds and client errors other than rate limiting.
func IsPermanent(err error) bool {
	var pe *permanentError
	if errors.As(err, &pe) {
		return true
	}
	var se *integrations.StatusError
	if errors.As(err, &se) {
		return !se.Temporary()
	}
	return false
}

// Dispatcher executes outbox tasks against the external collaborators.
type Dispatcher struct {
	mailer          Mailer
	profiles        ProfileSync
	marketing       Marketing
	generator       TextGenerator
	generateTimeout time.Duration
	logger          *slog.Logger
}

func NewDispatcher(mailer Mailer, profiles ProfileSync, marketing Marketing, generator TextGenerator, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:          mailer,
		profiles:        profiles,
		marketing:       marketing,
		generator:       generator,
		generateTimeout: 20 * time.Second,
		logger:          logger,
	}
}

// Handle runs a single task.
func (d *Dispatcher) Handle(ctx context.Context, task *models.OutboxTask) error {
	switch task.Kind {
	case models.TaskSendEmail:
		var p models.EmailPayload
		if err := decode(task, &p); err != nil {
			return err
		}
		return d.sendEmail(ctx, p)

	case models.TaskUpsertProfile:
		var p models.ProfilePayload
		if err := decode(task, &p); err != nil {
			return err
		}
		return d.profiles.UpsertProfile(ctx, p)

	case models.TaskRecordFact:
		var p models.FactPayload
		if err := decode(task, &p); err != nil {
			return err
		}
		return d.profiles.RecordFact(ctx, p)

	case models.TaskDeleteProfile:
		var p models.DeleteProfilePayload
		if err := decode(task, &p); err != nil {
			return err
		}
		return d.profiles.DeleteProfiles(ctx, p.UserID)

	case models.TaskTrackEvent:
		var p models.EventPayload
		if err := decode(task, &p); err != nil {
			return err
		}
		if p.EventType == "" || p.ProfileID == "" {
			return permanent(errors.New("event task has no type or profile"))
		}
		return d.profiles.TrackEvent(ctx, p)

	case models.TaskMarketingContact:
		var p models.ContactPayload
		if err := decode(task, &p); err != nil {
			return err
		}
		return d.marketing.CreateContact(ctx, p)
	}

	return permanent(fmt.Errorf("unknown task kind %q", task.Kind))
}

func decode(task *models.OutboxTask, dst any) error {
	if err := json.Unmarshal(task.Payload, dst); err != nil {
		return permanent(fmt.Errorf("invalid %s payload: %w", task.Kind, err))
	}
	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, p models.EmailPayload) error {
	if p.To == "" {
		return permanent(errors.New("email task has no recipient"))
	}
	return d.mailer.Send(ctx, p.To, p.Subject, d.emailBody(ctx, p))
}

// emailBody asks the generator for a personalised body and falls back to the
// stored one.
func (d *Dispatcher) emailBody(ctx context.Context, p models.EmailPayload) string {
	if p.Prompt == "" || d.generator == nil {
		return p.Body
	}

	genCtx, cancel := context.WithTimeout(ctx, d.generateTimeout)
	defer cancel()

	body, err := d.generator.Generate(genCtx, p.Prompt)
	if err != nil {
		if !errors.Is(err, integrations.ErrDisabled) {
			d.logger.Warn("text generation failed, using fallback body",
				slog.String("subject", p.Subject), slog.Any("error", err))
		}
		return p.Body
	}
	if body = strings.TrimSpace(body); body == "" {
		return p.Body
	}
	return body
}
