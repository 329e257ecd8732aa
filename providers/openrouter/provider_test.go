package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"botroom/llm"
	"botroom/types"
)

func history() []types.Message {
	return []types.Message{
		types.NewHumanMessage("hi"),
		types.NewMessage("Gemini", types.AuthorGemini, "hello"),
	}
}

func TestGenerateReply_Success(t *testing.T) {
	var captured chatRequest
	var gotAuth, gotReferer string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "a reply"}}},
		})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "sk-test", BaseURL: srv.URL}, "openai/gpt-4o-mini", zap.NewNop())
	reply, err := p.GenerateReply(context.Background(), history(), "be helpful")

	require.NoError(t, err)
	assert.Equal(t, "a reply", reply)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "AI Bot Chat Room", gotReferer)
	assert.Equal(t, "openai/gpt-4o-mini", captured.Model)

	// System instruction leads, then the formatted history with its
	// synthetic continuation turn.
	require.Len(t, captured.Messages, 4)
	assert.Equal(t, chatMessage{Role: "system", Content: "be helpful"}, captured.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "hi"}, captured.Messages[1])
	assert.Equal(t, chatMessage{Role: "assistant", Content: "Gemini: hello"}, captured.Messages[2])
	assert.Equal(t, chatMessage{Role: "user", Content: llm.ContinuationPrompt}, captured.Messages[3])
}

func TestGenerateReply_MissingKey(t *testing.T) {
	p := New(Config{}, "openai/gpt-4o-mini", zap.NewNop())
	_, err := p.GenerateReply(context.Background(), history(), "")

	require.Error(t, err)
	assert.Equal(t, types.ErrCredentialsMissing, types.GetErrorCode(err))
}

func TestGenerateReply_AuthenticationFailure(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		expectedMessage string
	}{
		{
			name:            "structured upstream message",
			body:            `{"error":{"message":"API key disabled.","code":401}}`,
			expectedMessage: "Authentication Error: API key disabled. Please check your API key in settings.",
		},
		{
			name:            "non-JSON body falls back to default message",
			body:            "nope",
			expectedMessage: "Authentication Error: Invalid API Key. Please check your API key in settings.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := New(Config{APIKey: "bad", BaseURL: srv.URL}, "openai/gpt-4o-mini", zap.NewNop())
			_, err := p.GenerateReply(context.Background(), history(), "")

			require.Error(t, err)
			assert.Equal(t, types.ErrAuthentication, types.GetErrorCode(err))
			assert.True(t, types.IsAuthenticationError(err))
			assert.Equal(t, tt.expectedMessage, types.NoticeText(err))
		})
	}
}

func TestGenerateReply_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"rate limited", http.StatusTooManyRequests, "slow down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := New(Config{APIKey: "sk-test", BaseURL: srv.URL}, "openai/gpt-4o-mini", zap.NewNop())
			_, err := p.GenerateReply(context.Background(), history(), "")

			require.Error(t, err)
			assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
			assert.False(t, types.IsAuthenticationError(err))
			assert.Contains(t, types.NoticeText(err), tt.body)
		})
	}
}

func TestGenerateReply_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "sk-test", BaseURL: srv.URL}, "openai/gpt-4o-mini", zap.NewNop())
	_, err := p.GenerateReply(context.Background(), history(), "")

	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.Contains(t, types.NoticeText(err), "invalid or empty response")
}
