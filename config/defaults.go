package config

import "time"

// DefaultLMStudioURL is the OpenAI-compatible endpoint LM Studio serves
// locally out of the box.
const DefaultLMStudioURL = "http://localhost:1234/v1/chat/completions"

// DefaultOpenRouterModels is the curated catalog offered in the
// settings UI. Any valid OpenRouter model id is accepted at runtime;
// this list is only the starting menu.
var DefaultOpenRouterModels = []string{
	"anthropic/claude-3-haiku",
	"google/gemma-2-9b-it",
	"meta-llama/llama-3-8b-instruct",
	"mistralai/mistral-7b-instruct",
	"openai/gpt-4o-mini",
	"microsoft/phi-3-medium-128k-instruct",
	"x-ai/grok-4-fast:free",
	"teknium/openhermes-2.5-mistral-7b",
	"cognitivecomputations/dolphin-mixtral-8x7b",
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:      DefaultServerConfig(),
		Room:        DefaultRoomConfig(),
		Log:         DefaultLogConfig(),
		Credentials: DefaultCredentialsConfig(),
		Bots:        DefaultBotsConfig(),
	}
}

// DefaultServerConfig returns the default HTTP server settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    90 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    5,
		RateLimitBurst:  10,
	}
}

// DefaultRoomConfig returns the default orchestration timing.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		SequentialDelay: 3 * time.Second,
		Quiescence:      5 * time.Second,
	}
}

// DefaultLogConfig returns the default logger settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultCredentialsConfig returns empty credentials with the local
// LM Studio endpoint preset.
func DefaultCredentialsConfig() CredentialsConfig {
	return CredentialsConfig{
		LMStudioURL: DefaultLMStudioURL,
	}
}

// DefaultBotsConfig enables only Gemini, matching a fresh install.
func DefaultBotsConfig() BotsConfig {
	return BotsConfig{
		Gemini: true,
	}
}
