package lmstudio

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
	var captured chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "LM Studio calls carry no credentials")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "local reply"}}},
		})
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, zap.NewNop())
	reply, err := p.GenerateReply(context.Background(), []types.Message{types.NewHumanMessage("hi")}, "instruction")

	require.NoError(t, err)
	assert.Equal(t, "local reply", reply)
	assert.Equal(t, "local-model", captured.Model)
	assert.Equal(t, defaultTemperature, captured.Temperature)
	require.NotEmpty(t, captured.Messages)
	assert.Equal(t, chatMessage{Role: "system", Content: "instruction"}, captured.Messages[0])
}

func TestGenerateReply_MissingURL(t *testing.T) {
	p := New(Config{}, zap.NewNop())
	_, err := p.GenerateReply(context.Background(), nil, "")

	require.Error(t, err)
	assert.Equal(t, types.ErrCredentialsMissing, types.GetErrorCode(err))
	assert.Equal(t, "LM Studio URL is not provided.", types.NoticeText(err))
}

func TestGenerateReply_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, zap.NewNop())
	_, err := p.GenerateReply(context.Background(), []types.Message{types.NewHumanMessage("hi")}, "")

	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.Contains(t, types.NoticeText(err), "LM Studio API Error (400)")
	assert.Contains(t, types.NoticeText(err), "model not loaded")
}

func TestGenerateReply_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, zap.NewNop())
	_, err := p.GenerateReply(context.Background(), []types.Message{types.NewHumanMessage("hi")}, "")

	require.Error(t, err)
	assert.Contains(t, types.NoticeText(err), "invalid or empty response")
}
