package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"botroom/providers/openrouter"
	"botroom/types"
)

func TestFactory_Provider(t *testing.T) {
	f := NewFactory(zap.NewNop())
	settings := types.Settings{
		GeminiAPIKey:     "g",
		OpenRouterAPIKey: "or",
		LMStudioURL:      "http://localhost:1234/v1/chat/completions",
	}

	tests := []struct {
		name         string
		bot          types.BotDescriptor
		expectedName string
	}{
		{"gemini", types.BotDescriptor{DisplayName: "Gemini", AuthorType: types.AuthorGemini}, "gemini"},
		{"lmstudio", types.BotDescriptor{DisplayName: "LM Studio", AuthorType: types.AuthorLMStudio}, "lmstudio"},
		{"openrouter", types.BotDescriptor{DisplayName: "OR / gpt-4o-mini", AuthorType: types.AuthorOpenRouter, Model: "openai/gpt-4o-mini"}, "openrouter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := f.Provider(tt.bot, settings)
			require.NotNil(t, p)
			assert.Equal(t, tt.expectedName, p.Name())
		})
	}
}

func TestFactory_OpenRouterModelBinding(t *testing.T) {
	f := NewFactory(zap.NewNop())
	bot := types.BotDescriptor{AuthorType: types.AuthorOpenRouter, Model: "mistralai/mistral-7b-instruct"}

	p := f.Provider(bot, types.Settings{OpenRouterAPIKey: "or"})
	or, ok := p.(*openrouter.Provider)
	require.True(t, ok)
	assert.Equal(t, "mistralai/mistral-7b-instruct", or.Model())
}

func TestFactory_UnknownAuthorType(t *testing.T) {
	f := NewFactory(zap.NewNop())
	assert.Nil(t, f.Provider(types.BotDescriptor{AuthorType: types.AuthorSystem}, types.Settings{}))
	assert.Nil(t, f.Provider(types.BotDescriptor{AuthorType: types.AuthorHuman}, types.Settings{}))
}
