// Package lmstudio implements the llm.Provider contract against a
// self-hosted LM Studio server (OpenAI-compatible chat completions).
package lmstudio

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

// LM Studio serves whatever model is loaded locally under this alias.
const localModel = "local-model"

const defaultTemperature = 0.7

// Config configures the LM Studio adapter. URL is the full chat
// completions endpoint of the local server.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Provider implements llm.Provider for LM Studio. No authentication;
// the endpoint URL is the only required configuration.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates an LM Studio provider instance.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *Provider) Name() string { return "lmstudio" }

// OpenAI-compatible wire structures.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatChoice struct {
	Index   int         `json:"index"`
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

func (p *Provider) GenerateReply(ctx context.Context, history []types.Message, systemInstruction string) (string, error) {
	if strings.TrimSpace(p.cfg.URL) == "" {
		return "", types.NewError(types.ErrCredentialsMissing,
			"LM Studio URL is not provided.").WithProvider(p.Name())
	}

	turns := llm.FormatHistory(history, llm.OpenAIRoles)
	messages := make([]chatMessage, 0, len(turns)+1)
	if systemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemInstruction})
	}
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Content})
	}

	payload, _ := json.Marshal(chatRequest{
		Model:       localModel,
		Messages:    messages,
		Temperature: defaultTemperature,
	})

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("LM Studio request failed: %v", err)).
			WithHTTPStatus(http.StatusBadGateway).WithProvider(p.Name()).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("LM Studio API Error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))).
			WithHTTPStatus(resp.StatusCode).WithProvider(p.Name())
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("LM Studio request failed: %v", err)).
			WithHTTPStatus(http.StatusBadGateway).WithProvider(p.Name()).WithCause(err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", types.NewError(types.ErrUpstreamError,
			"Received an invalid or empty response from LM Studio.").WithProvider(p.Name())
	}

	p.logger.Debug("lmstudio reply generated",
		zap.Int("chars", len(cr.Choices[0].Message.Content)))
	return cr.Choices[0].Message.Content, nil
}
