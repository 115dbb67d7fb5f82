package models

import "time"

// Policyholder is the record of policies actually granted to a user. There is
// at most one per user; each approval appends an entry.
type Policyholder struct {
	ID           string
	UserID       string
	UserName     string
	PurchaseDate time.Time
	Entries      []PolicyholderEntry
}

type PolicyholderEntry struct {
	ID        string
	PolicyID  string
	RequestID *string
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	Policy    PolicySummary
}

// ExpiringEntry is a holding whose end date falls inside a reminder window.
type ExpiringEntry struct {
	EntryID string
	EndDate time.Time
	User    UserSummary
	Policy  PolicySummary
}
