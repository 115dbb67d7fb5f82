package integrations

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/BradenHooton/claimsdesk/internal/config"
)

// GeminiClient generates short notification texts.
type GeminiClient struct {
	http   jsonClient
	model  string
	apiKey string
}

func NewGeminiClient(cfg config.LLMConfig) *GeminiClient {
	return &GeminiClient{
		http:   newJSONClient("gemini", cfg.BaseURL, "", "", cfg.Timeout),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate returns the model's text for prompt.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	path := "/models/" + url.PathEscape(c.model) + ":generateContent?key=" + url.QueryEscape(c.apiKey)

	var resp geminiResponse
	err := c.http.do(ctx, http.MethodPost, path, geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}, &resp)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}
