package models

import "time"

type Claim struct {
	ID          string
	UserID      string
	PolicyID    string
	DocumentURL string
	Amount      float64
	Status      string
	DateFiled   time.Time
	DecidedAt   *time.Time
	DecidedBy   *string
	CreatedAt   time.Time
}

func (c *Claim) IsPending() bool {
	return c.Status == StatusPending
}

// ClaimDetail is a claim joined with its owner and policy summaries.
type ClaimDetail struct {
	Claim
	User   UserSummary
	Policy PolicySummary
}
