package integrations

import (
	"context"
	"net/http"

	"github.com/BradenHooton/claimsdesk/internal/config"
	"github.com/BradenHooton/claimsdesk/internal/models"
)

// MauticClient creates marketing contacts for newly registered users.
type MauticClient struct {
	http jsonClient
}

func NewMauticClient(cfg config.MarketingConfig) *MauticClient {
	return &MauticClient{http: newJSONClient("mautic", cfg.BaseURL, cfg.Username, cfg.Password, cfg.Timeout)}
}

type mauticContact struct {
	FirstName string `json:"firstname"`
	Email     string `json:"email"`
}

func (c *MauticClient) CreateContact(ctx context.Context, p models.ContactPayload) error {
	return c.http.do(ctx, http.MethodPost, "/api/contacts/new", mauticContact{FirstName: p.Name, Email: p.Email}, nil)
}
