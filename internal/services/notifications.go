package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/models"
)

// OutboxEnqueuer records side-effect tasks for the outbox worker.
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, tasks ...*models.OutboxTask) error
}

const dateLayout = "2006-01-02"

// taskBatch collects outbox tasks, keeping the first marshal error.
type taskBatch struct {
	tasks []*models.OutboxTask
	err   error
}

func (b *taskBatch) add(kind string, payload any) *taskBatch {
	if b.err != nil {
		return b
	}
	task, err := models.NewOutboxTask(kind, payload)
	if err != nil {
		b.err = fmt.Errorf("failed to build %s task: %w", kind, err)
		return b
	}
	b.tasks = append(b.tasks, task)
	return b
}

func (b *taskBatch) email(p models.EmailPayload) *taskBatch {
	return b.add(models.TaskSendEmail, p)
}

func (b *taskBatch) fact(itemID string, properties map[string]any) *taskBatch {
	return b.add(models.TaskRecordFact, models.FactPayload{ItemID: itemID, Properties: properties})
}

func (b *taskBatch) profile(u *models.User) *taskBatch {
	first, last := models.SplitName(u.Name)
	return b.add(models.TaskUpsertProfile, models.ProfilePayload{
		UserID:    u.ID,
		FirstName: first,
		LastName:  last,
		Email:     u.Email,
		Role:      u.Role,
	})
}

// enqueueAfterCommit enqueues tasks for a transition that is already durable.
// Failures are logged and swallowed.
func enqueueAfterCommit(ctx context.Context, outbox OutboxEnqueuer, logger *slog.Logger, batch *taskBatch, attrs ...any) {
	if batch.err == nil && len(batch.tasks) > 0 {
		batch.err = outbox.Enqueue(ctx, batch.tasks...)
	}
	if batch.err != nil {
		logger.Warn("failed to enqueue side effects", append(attrs, slog.Any("error", batch.err))...)
	}
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func optionalMoney(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return money(*v)
}

func welcomeEmail(u *models.User) models.EmailPayload {
	return models.EmailPayload{
		To:      u.Email,
		Subject: "Welcome to Our Platform!",
		Body:    fmt.Sprintf("Hi %s,\n\nWelcome to our platform! We are excited to have you.\n\nFriendly Insurance Team", u.Name),
		Prompt: fmt.Sprintf("Write a short, warm welcome email for %s, who just created an account with Friendly Insurance. "+
			"Mention they can browse policies, request coverage and file claims online. Plain text, under 120 words.", u.Name),
	}
}

func loginEmail(u *models.User, at time.Time) models.EmailPayload {
	when := at.UTC().Format(time.RFC1123)
	return models.EmailPayload{
		To:      u.Email,
		Subject: "New Login Detected - Friendly Insurance",
		Body:    fmt.Sprintf("Hi %s,\n\nWe noticed a new login to your account at %s. If this was not you, reset your password right away.\n\nFriendly Insurance Team", u.Name, when),
		Prompt: fmt.Sprintf("Write a brief security notice to %s about a new login to their Friendly Insurance account at %s. "+
			"Advise resetting the password if the login was not theirs. Plain text, under 80 words.", u.Name, when),
	}
}

func resetEmail(u *models.User, link string) models.EmailPayload {
	return models.EmailPayload{
		To:      u.Email,
		Subject: "Password Reset Request",
		Body: fmt.Sprintf("Hi %s,\n\nUse the link below to reset your password. It expires in one hour.\n\n%s\n\n"+
			"If you did not request a reset you can ignore this email.", u.Name, link),
	}
}

func purchaseSubmittedEmail(u *models.User, p *models.Policy, start, end time.Time) models.EmailPayload {
	return models.EmailPayload{
		To:      u.Email,
		Subject: fmt.Sprintf("Your %s Insurance Purchase Request", p.Type),
		Body: fmt.Sprintf("Dear %s,\n\nWe received your request for policy %s (%s, coverage %s) from %s to %s. "+
			"An administrator will review it shortly.\n\nFriendly Insurance Team",
			u.Name, p.PolicyNumber, p.Type, money(p.CoverageAmount), start.Format(dateLayout), end.Format(dateLayout)),
		Prompt: fmt.Sprintf("Write a confirmation email to %s acknowledging their request for %s insurance policy %s "+
			"with coverage %s and cost %s, running %s to %s. Say it is awaiting admin approval. Plain text, under 120 words.",
			u.Name, p.Type, p.PolicyNumber, money(p.CoverageAmount), optionalMoney(p.Cost), start.Format(dateLayout), end.Format(dateLayout)),
	}
}

func policyDecisionEmail(u *models.User, p *models.Policy, status string, start, end time.Time) models.EmailPayload {
	var body string
	if status == models.StatusApproved {
		body = fmt.Sprintf("Dear %s,\n\nYour request for policy %s (%s) has been approved. Coverage of %s runs from %s to %s.\n\nFriendly Insurance Team",
			u.Name, p.PolicyNumber, p.Type, money(p.CoverageAmount), start.Format(dateLayout), end.Format(dateLayout))
	} else {
		body = fmt.Sprintf("Dear %s,\n\nUnfortunately your request for policy %s (%s) was not approved. "+
			"Contact support if you have questions or would like to explore other options.\n\nFriendly Insurance Team",
			u.Name, p.PolicyNumber, p.Type)
	}

	return models.EmailPayload{
		To:      u.Email,
		Subject: fmt.Sprintf("Policy Purchase Request %s", strings.ToUpper(status)),
		Body:    body,
		Prompt: fmt.Sprintf("Write an email to %s saying their request for %s insurance policy %s (coverage %s, %s to %s) was %s. "+
			"Be professional and offer help. Plain text, under 120 words.",
			u.Name, p.Type, p.PolicyNumber, money(p.CoverageAmount), start.Format(dateLayout), end.Format(dateLayout), strings.ToLower(status)),
	}
}

func claimSubmittedEmail(u *models.User, c *models.Claim, p *models.Policy) models.EmailPayload {
	return models.EmailPayload{
		To:      u.Email,
		Subject: "Claim - Submission Received",
		Body: fmt.Sprintf("Dear %s,\n\nWe received your claim %s for %s against policy %s. We will notify you once it has been reviewed.\n\nFriendly Insurance Team",
			u.Name, c.ID, money(c.Amount), p.PolicyNumber),
		Prompt: fmt.Sprintf("Write an email to %s confirming receipt of insurance claim %s for %s against %s policy %s, filed on %s. "+
			"Say it is under review. Plain text, under 100 words.",
			u.Name, c.ID, money(c.Amount), p.Type, p.PolicyNumber, c.DateFiled.Format(dateLayout)),
	}
}

func claimDecisionEmail(u *models.User, c *models.Claim, status string) models.EmailPayload {
	return models.EmailPayload{
		To:      u.Email,
		Subject: fmt.Sprintf("Claim #%s Status Update - %s", c.ID, strings.ToUpper(status)),
		Body: fmt.Sprintf("Dear %s,\n\nYour claim %s for %s has been %s.\n\nFriendly Insurance Team",
			u.Name, c.ID, money(c.Amount), strings.ToLower(status)),
		Prompt: fmt.Sprintf("Write an email to %s saying their insurance claim %s for %s has been %s. "+
			"If rejected, suggest contacting support. Plain text, under 100 words.",
			u.Name, c.ID, money(c.Amount), strings.ToLower(status)),
	}
}

func expiryReminderEmail(e *models.ExpiringEntry) models.EmailPayload {
	return models.EmailPayload{
		To:      e.User.Email,
		Subject: fmt.Sprintf("Your %s policy %s is expiring soon", e.Policy.Type, e.Policy.PolicyNumber),
		Body: fmt.Sprintf("Dear %s,\n\nYour %s policy %s (coverage %s) ends on %s. Renew it to stay covered.\n\nFriendly Insurance Team",
			e.User.Name, e.Policy.Type, e.Policy.PolicyNumber, money(e.Policy.CoverageAmount), e.EndDate.Format(dateLayout)),
		Prompt: fmt.Sprintf("Write a friendly reminder to %s that their %s insurance policy %s (coverage %s, cost %s) expires on %s. "+
			"Encourage renewal and offer assistance. Plain text, under 150 words.",
			e.User.Name, e.Policy.Type, e.Policy.PolicyNumber, money(e.Policy.CoverageAmount), optionalMoney(e.Policy.Cost), e.EndDate.Format(dateLayout)),
	}
}

func policyFact(p *models.Policy) (string, map[string]any) {
	props := map[string]any{
		"policyId":       p.ID,
		"policyNumber":   p.PolicyNumber,
		"type":           p.Type,
		"coverageAmount": p.CoverageAmount,
		"startDate":      p.StartDate.Format(dateLayout),
		"endDate":        p.EndDate.Format(dateLayout),
	}
	if p.Cost != nil {
		props["cost"] = *p.Cost
	}
	return "policy-" + p.ID, props
}

func requestFact(r *models.PolicyRequest, p *models.Policy) (string, map[string]any) {
	return "request-" + r.ID, map[string]any{
		"userId":       r.UserID,
		"policyId":     r.PolicyID,
		"policyNumber": p.PolicyNumber,
		"policyType":   p.Type,
		"status":       r.Status,
		"startDate":    r.StartDate.Format(dateLayout),
		"endDate":      r.EndDate.Format(dateLayout),
	}
}

func claimFact(c *models.Claim) (string, map[string]any) {
	return "claim-" + c.ID, map[string]any{
		"userId":    c.UserID,
		"policyId":  c.PolicyID,
		"amount":    c.Amount,
		"status":    c.Status,
		"dateFiled": c.DateFiled.Format(dateLayout),
	}
}
