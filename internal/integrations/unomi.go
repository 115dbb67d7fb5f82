package integrations

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/config"
	"github.com/BradenHooton/claimsdesk/internal/models"
)

// UnomiClient mirrors identities and policy/claim facts into Apache Unomi.
// Every write is keyed by itemId, so re-sending overwrites.
type UnomiClient struct {
	http jsonClient
}

func NewUnomiClient(cfg config.ProfileSyncConfig) *UnomiClient {
	return &UnomiClient{http: newJSONClient("unomi", cfg.BaseURL, cfg.Username, cfg.Password, cfg.Timeout)}
}

type unomiProfile struct {
	ItemID     string         `json:"itemId"`
	ItemType   string         `json:"itemType"`
	Properties map[string]any `json:"properties"`
}

type unomiSearch struct {
	Condition unomiCondition `json:"condition"`
	Limit     int            `json:"limit"`
}

type unomiCondition struct {
	Type            string         `json:"type"`
	ParameterValues map[string]any `json:"parameterValues"`
}

type unomiSearchResult struct {
	List []struct {
		ItemID     string         `json:"itemId"`
		Properties map[string]any `json:"properties"`
	} `json:"list"`
}

// unomiScope tags every event this service sends.
const unomiScope = "claimsdesk"

// insightsLimit caps the profiles read back for insights.
const insightsLimit = 1000

type unomiItem struct {
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
	Scope    string `json:"scope"`
}

type unomiEvent struct {
	EventType  string         `json:"eventType"`
	Scope      string         `json:"scope"`
	ProfileID  string         `json:"profileId"`
	SessionID  string         `json:"sessionId"`
	TimeStamp  string         `json:"timeStamp"`
	Source     unomiItem      `json:"source"`
	Target     *unomiItem     `json:"target,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

type unomiEventBatch struct {
	SessionID string       `json:"sessionId"`
	ProfileID string       `json:"profileId"`
	Events    []unomiEvent `json:"events"`
}

func (c *UnomiClient) saveProfile(ctx context.Context, itemID string, properties map[string]any) error {
	return c.http.do(ctx, http.MethodPost, "/cxs/profiles", unomiProfile{
		ItemID:     itemID,
		ItemType:   "profile",
		Properties: properties,
	}, nil)
}

// UpsertProfile writes the user's identity under the user's id.
func (c *UnomiClient) UpsertProfile(ctx context.Context, p models.ProfilePayload) error {
	props := map[string]any{
		"userId":    p.UserID,
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"email":     p.Email,
	}
	if p.Role != "" {
		props["role"] = p.Role
	}
	return c.saveProfile(ctx, p.UserID, props)
}

// RecordFact writes an entity fact such as a holding or a claim decision.
func (c *UnomiClient) RecordFact(ctx context.Context, f models.FactPayload) error {
	if f.ItemID == "" {
		return fmt.Errorf("unomi fact requires an itemId")
	}
	return c.saveProfile(ctx, f.ItemID, f.Properties)
}

// DeleteProfiles removes every profile whose properties.userId matches.
func (c *UnomiClient) DeleteProfiles(ctx context.Context, userID string) error {
	search := unomiSearch{
		Condition: unomiCondition{
			Type: "profilePropertyCondition",
			ParameterValues: map[string]any{
				"propertyName":       "properties.userId",
				"comparisonOperator": "equals",
				"propertyValue":      userID,
			},
		},
		Limit: 100,
	}

	var result unomiSearchResult
	if err := c.http.do(ctx, http.MethodPost, "/cxs/profiles/search", search, &result); err != nil {
		return err
	}

	for _, p := range result.List {
		if err := c.http.do(ctx, http.MethodDelete, "/cxs/profiles/"+url.PathEscape(p.ItemID), nil, nil); err != nil {
			return fmt.Errorf("failed to delete profile %s: %w", p.ItemID, err)
		}
	}
	return nil
}

// TrackEvent sends one event to the event collector.
func (c *UnomiClient) TrackEvent(ctx context.Context, e models.EventPayload) error {
	if e.EventType == "" || e.ProfileID == "" {
		return fmt.Errorf("unomi event requires an eventType and a profileId")
	}

	at := e.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	event := unomiEvent{
		EventType:  e.EventType,
		Scope:      unomiScope,
		ProfileID:  e.ProfileID,
		SessionID:  e.SessionID,
		TimeStamp:  at.UTC().Format(time.RFC3339),
		Source:     unomiItem{ItemType: "site", ItemID: unomiScope, Scope: unomiScope},
		Properties: e.Properties,
	}
	if e.TargetID != "" {
		targetType := e.TargetType
		if targetType == "" {
			targetType = "page"
		}
		event.Target = &unomiItem{ItemType: targetType, ItemID: e.TargetID, Scope: unomiScope}
	}

	return c.http.do(ctx, http.MethodPost, "/cxs/eventcollector", unomiEventBatch{
		SessionID: e.SessionID,
		ProfileID: e.ProfileID,
		Events:    []unomiEvent{event},
	}, nil)
}

// Insights reads back every profile carrying a userId. Approved request facts
// are counted per policy type; identity profiles are ranked by how many facts
// share their userId.
func (c *UnomiClient) Insights(ctx context.Context) (*models.ProfileInsights, error) {
	search := unomiSearch{
		Condition: unomiCondition{
			Type: "profilePropertyCondition",
			ParameterValues: map[string]any{
				"propertyName":       "properties.userId",
				"comparisonOperator": "exists",
			},
		},
		Limit: insightsLimit,
	}

	var result unomiSearchResult
	if err := c.http.do(ctx, http.MethodPost, "/cxs/profiles/search", search, &result); err != nil {
		return nil, err
	}

	insights := &models.ProfileInsights{HoldingsByType: map[string]int{}}
	identities := map[string]*models.ProfileActivity{}
	facts := map[string]int{}

	for _, p := range result.List {
		userID, _ := p.Properties["userId"].(string)
		if userID == "" {
			continue
		}
		if p.ItemID == userID {
			email, _ := p.Properties["email"].(string)
			identities[userID] = &models.ProfileActivity{UserID: userID, Email: email}
			continue
		}
		facts[userID]++

		status, _ := p.Properties["status"].(string)
		policyType, _ := p.Properties["policyType"].(string)
		if status == models.StatusApproved && policyType != "" {
			insights.HoldingsByType[policyType]++
		}
	}

	for userID, a := range identities {
		a.Facts = facts[userID]
		insights.ActiveProfiles = append(insights.ActiveProfiles, *a)
	}
	sort.Slice(insights.ActiveProfiles, func(i, j int) bool {
		a, b := insights.ActiveProfiles[i], insights.ActiveProfiles[j]
		if a.Facts != b.Facts {
			return a.Facts > b.Facts
		}
		return a.Email < b.Email
	})
	return insights, nil
}
