package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outbox task kinds.
const (
	TaskSendEmail        = "email.send"
	TaskUpsertProfile    = "profile.upsert"
	TaskRecordFact       = "profile.fact"
	TaskDeleteProfile    = "profile.delete"
	TaskMarketingContact = "marketing.contact"
	TaskTrackEvent       = "profile.event"
)

// Outbox task states.
const (
	TaskPending    = "pending"
	TaskProcessing = "processing"
	TaskDone       = "done"
	TaskDead       = "dead"
)

// OutboxTask is a side effect recorded after a state transition and executed
// later by the outbox worker.
type OutboxTask struct {
	ID            string
	Kind          string
	Payload       json.RawMessage
	Status        string
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	LastError     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EmailPayload is the body of a TaskSendEmail task. When Prompt is set the
// worker asks the text generator for the body and falls back to Body.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Prompt  string `json:"prompt,omitempty"`
}

// ProfilePayload mirrors a user's identity into the customer-data platform.
type ProfilePayload struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
}

// FactPayload records a policy, holding or claim fact keyed by ItemID.
type FactPayload struct {
	ItemID     string         `json:"itemId"`
	Properties map[string]any `json:"properties"`
}

// DeleteProfilePayload removes every profile carrying the user id.
type DeleteProfilePayload struct {
	UserID string `json:"userId"`
}

// EventPayload is a behavioural event attributed to a user's profile.
type EventPayload struct {
	ProfileID  string         `json:"profileId"`
	SessionID  string         `json:"sessionId"`
	EventType  string         `json:"eventType"`
	TargetType string         `json:"targetType,omitempty"`
	TargetID   string         `json:"targetId,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// ContactPayload creates a marketing contact.
type ContactPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewOutboxTask marshals payload into a pending task of the given kind.
func NewOutboxTask(kind string, payload any) (*OutboxTask, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxTask{
		ID:      uuid.New().String(),
		Kind:    kind,
		Payload: raw,
		Status:  TaskPending,
	}, nil
}
