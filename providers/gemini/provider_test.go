package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"botroom/types"
)

func TestGenerateReply_Success(t *testing.T) {
	var captured geminiRequest
	var gotPath, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: "generated "}, {Text: "reply"}}},
			}},
		})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "g-key", BaseURL: srv.URL}, zap.NewNop())
	history := []types.Message{
		types.NewHumanMessage("hi"),
		types.NewMessage("LM Studio", types.AuthorLMStudio, "hello"),
	}
	reply, err := p.GenerateReply(context.Background(), history, "you are Gemini")

	require.NoError(t, err)
	assert.Equal(t, "generated reply", reply)
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", gotPath)
	assert.Equal(t, "g-key", gotKey)

	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "you are Gemini", captured.SystemInstruction.Parts[0].Text)

	// Bot tail means a synthetic trailing user turn.
	require.Len(t, captured.Contents, 3)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "model", captured.Contents[1].Role)
	assert.Equal(t, "LM Studio: hello", captured.Contents[1].Parts[0].Text)
	assert.Equal(t, "user", captured.Contents[2].Role)
}

func TestGenerateReply_MissingKey(t *testing.T) {
	p := New(Config{}, zap.NewNop())
	_, err := p.GenerateReply(context.Background(), nil, "")

	require.Error(t, err)
	assert.Equal(t, types.ErrCredentialsMissing, types.GetErrorCode(err))
}

func TestGenerateReply_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		expectedCode types.ErrorCode
	}{
		{
			name:         "401 maps to authentication",
			status:       http.StatusUnauthorized,
			body:         `{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`,
			expectedCode: types.ErrAuthentication,
		},
		{
			name:         "403 maps to authentication",
			status:       http.StatusForbidden,
			body:         `{"error":{"code":403,"message":"permission denied","status":"PERMISSION_DENIED"}}`,
			expectedCode: types.ErrAuthentication,
		},
		{
			name:         "500 maps to upstream error",
			status:       http.StatusInternalServerError,
			body:         "internal",
			expectedCode: types.ErrUpstreamError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := New(Config{APIKey: "g-key", BaseURL: srv.URL}, zap.NewNop())
			_, err := p.GenerateReply(context.Background(), []types.Message{types.NewHumanMessage("hi")}, "")

			require.Error(t, err)
			assert.Equal(t, tt.expectedCode, types.GetErrorCode(err))
		})
	}
}

func TestGenerateReply_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(geminiResponse{})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "g-key", BaseURL: srv.URL}, zap.NewNop())
	_, err := p.GenerateReply(context.Background(), []types.Message{types.NewHumanMessage("hi")}, "")

	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.Contains(t, types.NoticeText(err), "invalid or empty response")
}
