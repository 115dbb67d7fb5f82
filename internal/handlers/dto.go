package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

const dateLayout = "2006-01-02"

// Amount accepts a JSON number or a numeric string. Blank strings and null
// decode to zero. NaN and infinities are rejected.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(f) {
			return fmt.Errorf("invalid amount %q", s)
		}
		*a = Amount(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if !finite(f) {
		return fmt.Errorf("invalid amount %s", data)
	}
	*a = Amount(f)
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp. An empty value is
// the zero time so services can report the field as missing.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, models.NewValidationError("Invalid date %q. Use YYYY-MM-DD.", value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// Request DTOs

type RegisterRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"max=254"`
	Password string `json:"password"`
	Role     string `json:"role"`
	AdminKey string `json:"adminKey"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"max=254"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"max=254"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"omitempty,max=128"`
	NewPassword string `json:"newPassword"`
	Password    string `json:"password"`
}

// UpdateUserRequest carries a partial profile update; absent fields are left alone.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Email    *string `json:"email" validate:"omitempty,max=254"`
	Password *string `json:"password"`
}

type BuyPolicyRequest struct {
	UserID    string `json:"userId"`
	PolicyID  string `json:"policyId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type DecideRequestRequest struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
}

type PolicyRequestBody struct {
	PolicyNumber   string  `json:"policyNumber" validate:"max=64"`
	Type           string  `json:"type" validate:"max=64"`
	CoverageAmount Amount  `json:"coverageAmount"`
	Cost           *Amount `json:"cost"`
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
}

type FileClaimRequest struct {
	UserID    string `json:"userId"`
	PolicyID  string `json:"policyId"`
	Document  string `json:"Document" validate:"max=2048"`
	Amount    Amount `json:"amount"`
	DateFiled string `json:"dateFiled"`
}

type ClaimStatusRequest struct {
	Status string `json:"status"`
}

type PresignDocumentRequest struct {
	ContentType string `json:"contentType"`
}

type TrackEventRequest struct {
	EventType  string         `json:"eventType" validate:"required,max=64"`
	SessionID  string         `json:"sessionId" validate:"max=128"`
	TargetType string         `json:"targetType" validate:"max=64"`
	TargetID   string         `json:"targetId" validate:"max=256"`
	Properties map[string]any `json:"properties"`
}

// Response DTOs

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

type PolicyResponse struct {
	ID             string   `json:"id"`
	PolicyNumber   string   `json:"policyNumber"`
	Type           string   `json:"type"`
	CoverageAmount float64  `json:"coverageAmount"`
	Cost           *float64 `json:"cost,omitempty"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
}

func toPolicyResponse(p *models.Policy) PolicyResponse {
	return PolicyResponse{
		ID:             p.ID,
		PolicyNumber:   p.PolicyNumber,
		Type:           p.Type,
		CoverageAmount: p.CoverageAmount,
		Cost:           p.Cost,
		StartDate:      formatDate(p.StartDate),
		EndDate:        formatDate(p.EndDate),
	}
}

type PolicySummaryResponse struct {
	ID             string   `json:"id"`
	PolicyNumber   string   `json:"policyNumber"`
	Type           string   `json:"type"`
	CoverageAmount float64  `json:"coverageAmount"`
	Cost           *float64 `json:"cost,omitempty"`
}

func toPolicySummary(p models.PolicySummary) PolicySummaryResponse {
	return PolicySummaryResponse{
		ID:             p.ID,
		PolicyNumber:   p.PolicyNumber,
		Type:           p.Type,
		CoverageAmount: p.CoverageAmount,
		Cost:           p.Cost,
	}
}

type UserSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type PolicyRequestResponse struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"userId"`
	PolicyID    string                 `json:"policyId"`
	StartDate   string                 `json:"startDate"`
	EndDate     string                 `json:"endDate"`
	Status      string                 `json:"status"`
	RequestedAt time.Time              `json:"requestedAt"`
	User        *UserSummaryResponse   `json:"user,omitempty"`
	Policy      *PolicySummaryResponse `json:"policy,omitempty"`
}

func toPolicyRequestResponse(r *models.PolicyRequest) PolicyRequestResponse {
	return PolicyRequestResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		PolicyID:    r.PolicyID,
		StartDate:   formatDate(r.StartDate),
		EndDate:     formatDate(r.EndDate),
		Status:      r.Status,
		RequestedAt: r.RequestedAt,
	}
}

func toPendingRequestResponse(d *models.PolicyRequestDetail) PolicyRequestResponse {
	resp := toPolicyRequestResponse(&d.PolicyRequest)
	policy := toPolicySummary(d.Policy)
	resp.User = &UserSummaryResponse{ID: d.User.ID, Name: d.User.Name, Email: d.User.Email}
	resp.Policy = &policy
	return resp
}

// HoldingResponse is one policy a user owns for a date range.
type HoldingResponse struct {
	PolicyID       string   `json:"policyId"`
	PolicyNumber   string   `json:"policyNumber"`
	Type           string   `json:"type"`
	CoverageAmount float64  `json:"coverageAmount"`
	Cost           *float64 `json:"cost,omitempty"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
}

func toHoldingResponses(entries []models.PolicyholderEntry) []HoldingResponse {
	out := make([]HoldingResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HoldingResponse{
			PolicyID:       e.PolicyID,
			PolicyNumber:   e.Policy.PolicyNumber,
			Type:           e.Policy.Type,
			CoverageAmount: e.Policy.CoverageAmount,
			Cost:           e.Policy.Cost,
			StartDate:      formatDate(e.StartDate),
			EndDate:        formatDate(e.EndDate),
		})
	}
	return out
}

type PolicyholderResponse struct {
	UserID   string            `json:"userId"`
	UserName string            `json:"userName"`
	Policies []HoldingResponse `json:"policies"`
}

type ClaimResponse struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	PolicyID  string                 `json:"policyId"`
	Document  string                 `json:"Document"`
	Amount    float64                `json:"amount"`
	Status    string                 `json:"status"`
	DateFiled string                 `json:"dateFiled"`
	DecidedAt *time.Time             `json:"decidedAt,omitempty"`
	User      *UserSummaryResponse   `json:"user,omitempty"`
	Policy    *PolicySummaryResponse `json:"policy,omitempty"`
}

func toClaimResponse(c *models.Claim) ClaimResponse {
	return ClaimResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		PolicyID:  c.PolicyID,
		Document:  c.DocumentURL,
		Amount:    c.Amount,
		Status:    c.Status,
		DateFiled: formatDate(c.DateFiled),
		DecidedAt: c.DecidedAt,
	}
}

func toClaimDetailResponses(details []*models.ClaimDetail) []ClaimResponse {
	out := make([]ClaimResponse, 0, len(details))
	for _, d := range details {
		resp := toClaimResponse(&d.Claim)
		policy := toPolicySummary(d.Policy)
		resp.User = &UserSummaryResponse{ID: d.User.ID, Name: d.User.Name, Email: d.User.Email}
		resp.Policy = &policy
		out = append(out, resp)
	}
	return out
}

type ClaimDecisionResponse struct {
	Message string        `json:"message"`
	Claim   ClaimResponse `json:"claim"`
}

type AnalyticsResponse struct {
	UsersByRole         map[string]int `json:"usersByRole"`
	TotalPolicies       int            `json:"totalPolicies"`
	RequestsByStatus    map[string]int `json:"requestsByStatus"`
	ClaimsByStatus      map[string]int `json:"claimsByStatus"`
	ApprovedClaimAmount float64        `json:"approvedClaimAmount"`
}

type ProfileActivityResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Facts  int    `json:"facts"`
}

type ProfileInsightsResponse struct {
	HoldingsByType map[string]int            `json:"holdingsByType"`
	ActiveProfiles []ProfileActivityResponse `json:"activeProfiles"`
}

func toProfileInsightsResponse(in *models.ProfileInsights) ProfileInsightsResponse {
	out := ProfileInsightsResponse{
		HoldingsByType: in.HoldingsByType,
		ActiveProfiles: make([]ProfileActivityResponse, 0, len(in.ActiveProfiles)),
	}
	if out.HoldingsByType == nil {
		out.HoldingsByType = map[string]int{}
	}
	for _, a := range in.ActiveProfiles {
		out.ActiveProfiles = append(out.ActiveProfiles, ProfileActivityResponse{UserID: a.UserID, Email: a.Email, Facts: a.Facts})
	}
	return out
}
