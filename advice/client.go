// Package advice asks an LLM backend for infrastructure advice on the
// player's current build. The backend speaks the chat-completions wire
// format, so any OpenAI-compatible endpoint works.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cloudbudget/internal/config"
	"cloudbudget/internal/errors"
	"cloudbudget/internal/logging"
)

const systemPrompt = "You are a cloud infrastructure cost advisor inside a " +
	"simulation game. The player describes their current architecture, funds " +
	"and monthly traffic. Give short, concrete advice on how to serve the " +
	"demand without running out of money. Answer in at most five sentences."

// Request carries the game state the advisor reasons about.
type Request struct {
	Struct    map[string]any `json:"struct"`
	Funds     string         `json:"funds"`
	Month     int            `json:"current_month"`
	TotalCost string         `json:"total_cost,omitempty"`
	Question  string         `json:"question,omitempty"`
}

// Response is the advisor's answer.
type Response struct {
	Advice string `json:"advice"`
	Model  string `json:"model"`
}

// Client talks to one chat-completions endpoint.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

// NewClient builds a client from the advice configuration.
func NewClient(cfg config.AdviceConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an advice backend is configured.
func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Advise sends the game state to the backend and returns its answer.
func (c *Client) Advise(ctx context.Context, req Request) (Response, error) {
	if !c.Enabled() {
		return Response{}, errors.New(errors.TypeConfig, "advice backend is not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
	})
	if err != nil {
		return Response{}, errors.Internal("encode advice request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, errors.Internal("build advice request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, errors.Wrap(errors.TypeInternal, "call advice backend", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, errors.Wrap(errors.TypeInternal, "read advice response", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.Warn("advice backend returned an error",
			zap.Int("status", resp.StatusCode))
		return Response{}, errors.Newf(errors.TypeInternal, "advice backend status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return Response{}, errors.Wrap(errors.TypeInternal, "decode advice response", err)
	}
	if chat.Error != nil {
		return Response{}, errors.Newf(errors.TypeInternal, "advice backend: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return Response{}, errors.New(errors.TypeInternal, "advice backend returned no choices")
	}

	return Response{
		Advice: strings.TrimSpace(chat.Choices[0].Message.Content),
		Model:  c.model,
	}, nil
}

// buildPrompt flattens the game state into the user message.
func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current month: %d\n", req.Month)
	if req.Funds != "" {
		fmt.Fprintf(&b, "Remaining funds: %s\n", req.Funds)
	}
	if req.TotalCost != "" {
		fmt.Fprintf(&b, "Last monthly cost: %s\n", req.TotalCost)
	}

	if len(req.Struct) > 0 {
		if enc, err := json.MarshalIndent(req.Struct, "", "  "); err == nil {
			b.WriteString("Infrastructure:\n")
			b.Write(enc)
			b.WriteString("\n")
		}
	} else {
		b.WriteString("Infrastructure: nothing built yet\n")
	}

	if q := strings.TrimSpace(req.Question); q != "" {
		fmt.Fprintf(&b, "Player question: %s\n", q)
	}

	return b.String()
}
