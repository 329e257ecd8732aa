package types

// Settings is the per-round snapshot of the user's bot configuration.
// The orchestrator treats it as read-only input; edits between rounds
// take effect on the next round only.
type Settings struct {
	GeminiAPIKey     string     `json:"gemini_api_key" yaml:"gemini_api_key"`
	OpenRouterAPIKey string     `json:"openrouter_api_key" yaml:"openrouter_api_key"`
	LMStudioURL      string     `json:"lmstudio_url" yaml:"lmstudio_url"`
	ActiveBots       ActiveBots `json:"active_bots" yaml:"active_bots"`
}

// ActiveBots selects which backends take part in a round. The OpenRouter
// model list is an ordered set: insertion order is preserved and
// duplicates are rejected.
type ActiveBots struct {
	Gemini           bool     `json:"gemini" yaml:"gemini"`
	LMStudio         bool     `json:"lmstudio" yaml:"lmstudio"`
	OpenRouterModels []string `json:"openrouter_models" yaml:"openrouter_models"`
}

// AddOpenRouterModel appends a model id, preserving insertion order.
// Reports whether the model was added; duplicates are rejected.
func (b *ActiveBots) AddOpenRouterModel(model string) bool {
	for _, m := range b.OpenRouterModels {
		if m == model {
			return false
		}
	}
	b.OpenRouterModels = append(b.OpenRouterModels, model)
	return true
}

// RemoveOpenRouterModel removes a model id if present, preserving the
// order of the remaining entries.
func (b *ActiveBots) RemoveOpenRouterModel(model string) bool {
	for i, m := range b.OpenRouterModels {
		if m == model {
			b.OpenRouterModels = append(b.OpenRouterModels[:i], b.OpenRouterModels[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy so a stored snapshot cannot alias the
// caller's model slice.
func (s Settings) Clone() Settings {
	out := s
	if s.ActiveBots.OpenRouterModels != nil {
		out.ActiveBots.OpenRouterModels = append([]string(nil), s.ActiveBots.OpenRouterModels...)
	}
	return out
}

// Normalize drops duplicate OpenRouter model ids in place, keeping the
// first occurrence of each. Used when a whole settings snapshot arrives
// from outside rather than through AddOpenRouterModel.
func (s *Settings) Normalize() {
	models := s.ActiveBots.OpenRouterModels
	if len(models) < 2 {
		return
	}
	seen := make(map[string]struct{}, len(models))
	out := models[:0]
	for _, m := range models {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	s.ActiveBots.OpenRouterModels = out
}
