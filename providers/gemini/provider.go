// Package gemini implements the llm.Provider contract against the
// Google Gemini generateContent API.
package gemini

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

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
)

// Config configures the Gemini adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider implements llm.Provider for Gemini.
// Authentication uses the x-goog-api-key request header.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini provider instance.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *Provider) Name() string { return "gemini" }

// Gemini wire structures.
type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

func (p *Provider) GenerateReply(ctx context.Context, history []types.Message, systemInstruction string) (string, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return "", types.NewError(types.ErrCredentialsMissing,
			"Gemini API key is not configured.").WithProvider(p.Name())
	}

	turns := llm.FormatHistory(history, llm.GeminiRoles)
	contents := make([]geminiContent, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, geminiContent{
			Role:  t.Role,
			Parts: []geminiPart{{Text: t.Content}},
		})
	}

	body := geminiRequest{Contents: contents}
	if systemInstruction != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}}
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model)

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("Gemini API request failed: %v", err)).
			WithHTTPStatus(http.StatusBadGateway).WithProvider(p.Name()).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", mapError(resp.StatusCode, readErrMsg(resp.Body), p.Name())
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("Gemini API request failed: %v", err)).
			WithHTTPStatus(http.StatusBadGateway).WithProvider(p.Name()).WithCause(err)
	}

	var sb strings.Builder
	if len(gr.Candidates) > 0 {
		for _, part := range gr.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", types.NewError(types.ErrUpstreamError,
			"Received an invalid or empty response from Gemini.").WithProvider(p.Name())
	}

	p.logger.Debug("gemini reply generated",
		zap.String("model", p.cfg.Model),
		zap.Int("chars", len(text)))
	return text, nil
}

func readErrMsg(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var er geminiErrorResp
	if err := json.Unmarshal(raw, &er); err == nil && er.Error.Message != "" {
		return er.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

func mapError(status int, msg, provider string) *types.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewError(types.ErrAuthentication,
			fmt.Sprintf("Authentication Error: %s Please check your Gemini API key.", msg)).
			WithHTTPStatus(status).WithProvider(provider)
	default:
		return types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("Gemini API Error (%d): %s", status, msg)).
			WithHTTPStatus(status).WithProvider(provider)
	}
}
