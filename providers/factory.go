// Package providers wires the concrete backend adapters to the roster
// descriptors the orchestrator produces. Each adapter lives in its own
// subpackage and satisfies llm.Provider.
package providers

import (
	"go.uber.org/zap"

	"botroom/llm"
	"botroom/providers/gemini"
	"botroom/providers/lmstudio"
	"botroom/providers/openrouter"
	"botroom/types"
)

// Factory builds the adapter for one roster entry from the current
// settings snapshot. Credentials and endpoints are read lazily per
// round, so settings edits take effect on the next round.
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a provider factory.
func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{logger: logger}
}

// Provider returns the adapter for the given bot, or nil for an unknown
// author type. The orchestrator reports nil as a generic notice rather
// than failing the round.
func (f *Factory) Provider(bot types.BotDescriptor, settings types.Settings) llm.Provider {
	switch bot.AuthorType {
	case types.AuthorGemini:
		return gemini.New(gemini.Config{APIKey: settings.GeminiAPIKey}, f.logger)
	case types.AuthorLMStudio:
		return lmstudio.New(lmstudio.Config{URL: settings.LMStudioURL}, f.logger)
	case types.AuthorOpenRouter:
		return openrouter.New(openrouter.Config{APIKey: settings.OpenRouterAPIKey}, bot.Model, f.logger)
	default:
		return nil
	}
}
