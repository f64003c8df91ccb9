package anthropic

// Messages API client used for free-text chat: the model answers the
// user and names the watchlist operation the message implies, if any.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"swarmventures/internal/infra/retry"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

const systemPrompt = `You are a Telegram bot assistant for tracking swarm (AI-agent venture) share listings.
Given the user's message and their account data, reply with JSON only:
{"user_response": "<message to send back>",
 "operation": {"name": "add_to_watchlist" | "remove_from_watchlist" | "none",
               "params": {"swarm_id": "<slug>", "token": "<symbol>"}}}
The first 2 swarm additions are free, then premium access is required.`

var anthropicRetry = retry.Options{
	MaxRetries: 2,
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Operation is the structured action extracted from free text.
type Operation struct {
	Name   string `json:"name"`
	Params struct {
		SwarmID string `json:"swarm_id"`
		Token   string `json:"token"`
	} `json:"params"`
}

// Intent pairs the reply text with the extracted operation.
type Intent struct {
	UserResponse string    `json:"user_response"`
	Operation    Operation `json:"operation"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// ExtractIntent asks the model what the user wants. userContext is a
// short rendering of the account (status, watchlist) so the model can
// answer accurately.
func (c *Client) ExtractIntent(ctx context.Context, userMessage, userContext string) (*Intent, error) {
	reqBody, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: 1000,
		System:    systemPrompt,
		Messages: []message{{
			Role:    "user",
			Content: fmt.Sprintf("User data: %s\n\nUser message: %s", userContext, userMessage),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal messages request: %w", err)
	}

	var respBody []byte
	err = retry.Do(ctx, anthropicRetry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(reqBody))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", apiVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return &retry.HTTPError{
				StatusCode: resp.StatusCode,
				Body:       b,
				RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		respBody = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var mr messagesResponse
	if err := json.Unmarshal(respBody, &mr); err != nil {
		return nil, fmt.Errorf("decode messages response: %w", err)
	}
	if len(mr.Content) == 0 {
		return nil, fmt.Errorf("anthropic messages: empty content")
	}

	return parseIntent(mr.Content[0].Text)
}

// parseIntent reads the model's JSON answer. Model output drifts, so the
// text is trimmed of markdown fences and a missing operation defaults to
// "none" instead of failing the whole chat turn.
func parseIntent(text string) (*Intent, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var intent Intent
	if err := json.Unmarshal([]byte(text), &intent); err != nil {
		return nil, fmt.Errorf("parse intent JSON: %w", err)
	}
	if intent.UserResponse == "" {
		return nil, fmt.Errorf("parse intent: missing user_response")
	}
	if intent.Operation.Name == "" {
		intent.Operation.Name = "none"
	}
	return &intent, nil
}
