// Package openrouter implements the llm.Provider contract against the
// OpenRouter hosted-router API (OpenAI-compatible chat completions).
// One provider instance is bound to one model id; the router is queried
// once per distinct model.
package openrouter

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

	"botroom/llm"
	"botroom/types"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Identification headers sent with every request, per OpenRouter's
// attribution convention.
const (
	refererHeader = "AI Bot Chat Room"
	titleHeader   = "AI Bot Chat Room"
)

// Config configures the OpenRouter adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider implements llm.Provider for one OpenRouter model.
type Provider struct {
	cfg    Config
	model  string
	client *http.Client
	logger *zap.Logger
}

// New creates an OpenRouter provider bound to the given model id.
func New(cfg Config, model string, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	return &Provider{
		cfg:    cfg,
		model:  model,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *Provider) Name() string { return "openrouter" }

// Model returns the model id this instance queries.
func (p *Provider) Model() string { return p.model }

// OpenAI-compatible wire structures.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Index   int         `json:"index"`
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type errorResp struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", refererHeader)
	req.Header.Set("X-Title", titleHeader)
}

func (p *Provider) GenerateReply(ctx context.Context, history []types.Message, systemInstruction string) (string, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return "", types.NewError(types.ErrCredentialsMissing,
			"OpenRouter API key has not been provided in settings.").WithProvider(p.Name())
	}

	turns := llm.FormatHistory(history, llm.OpenAIRoles)
	messages := make([]chatMessage, 0, len(turns)+1)
	if systemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemInstruction})
	}
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Content})
	}

	payload, _ := json.Marshal(chatRequest{Model: p.model, Messages: messages})
	endpoint := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("OpenRouter request failed: %v", err)).
			WithHTTPStatus(http.StatusBadGateway).WithProvider(p.Name()).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", p.mapError(resp.StatusCode, resp.Body)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("OpenRouter request failed: %v", err)).
			WithHTTPStatus(http.StatusBadGateway).WithProvider(p.Name()).WithCause(err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", types.NewError(types.ErrUpstreamError,
			"Received an invalid or empty response from OpenRouter.").WithProvider(p.Name())
	}

	p.logger.Debug("openrouter reply generated",
		zap.String("model", p.model),
		zap.Int("chars", len(cr.Choices[0].Message.Content)))
	return cr.Choices[0].Message.Content, nil
}

func (p *Provider) mapError(status int, body io.Reader) *types.Error {
	raw, _ := io.ReadAll(io.LimitReader(body, 8192))

	if status == http.StatusUnauthorized {
		// Try to surface the upstream's specific message.
		specific := "Invalid API Key."
		var er errorResp
		if err := json.Unmarshal(raw, &er); err == nil && er.Error.Message != "" {
			specific = er.Error.Message
		}
		return types.NewError(types.ErrAuthentication,
			fmt.Sprintf("Authentication Error: %s Please check your API key in settings.", specific)).
			WithHTTPStatus(status).WithProvider(p.Name())
	}

	return types.NewError(types.ErrUpstreamError,
		fmt.Sprintf("API Error (%d): %s", status, strings.TrimSpace(string(raw)))).
		WithHTTPStatus(status).WithProvider(p.Name())
}
