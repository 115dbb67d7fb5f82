package models

import "time"

// Status values shared by policy requests and claims. Pending is the only
// non-terminal state.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Actions accepted when deciding a policy request.
const (
	ActionApprove = "Approve"
	ActionReject  = "Reject"
)

type PolicyRequest struct {
	ID          string
	UserID      string
	PolicyID    string
	StartDate   time.Time
	EndDate     time.Time
	Status      string
	RequestedAt time.Time
	DecidedAt   *time.Time
	DecidedBy   *string
}

func (r *PolicyRequest) IsPending() bool {
	return r.Status == StatusPending
}

// PolicyRequestDetail is a request joined with its requester and target policy.
type PolicyRequestDetail struct {
	PolicyRequest
	User   UserSummary
	Policy PolicySummary
}
