package llm

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"botroom/types"
)

func msg(author string, at types.AuthorType, content string) types.Message {
	return types.NewMessage(author, at, content)
}

func TestFormatHistory(t *testing.T) {
	tests := []struct {
		name     string
		history  []types.Message
		roles    RoleModel
		expected []Turn
	}{
		{
			name:     "empty history stays empty",
			history:  nil,
			roles:    OpenAIRoles,
			expected: []Turn{},
		},
		{
			name: "human message maps to user role with raw content",
			history: []types.Message{
				msg("You", types.AuthorHuman, "hi"),
			},
			roles: OpenAIRoles,
			expected: []Turn{
				{Role: "user", Content: "hi"},
			},
		},
		{
			name: "bot message gets author prefix and continuation turn",
			history: []types.Message{
				msg("Gemini", types.AuthorGemini, "hello"),
			},
			roles: OpenAIRoles,
			expected: []Turn{
				{Role: "assistant", Content: "Gemini: hello"},
				{Role: "user", Content: ContinuationPrompt},
			},
		},
		{
			name: "adjacent bot messages merge with blank line separator",
			history: []types.Message{
				msg("You", types.AuthorHuman, "hi"),
				msg("Gemini", types.AuthorGemini, "hello"),
				msg("LM Studio", types.AuthorLMStudio, "hey"),
			},
			roles: OpenAIRoles,
			expected: []Turn{
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "Gemini: hello\n\nLM Studio: hey"},
				{Role: "user", Content: ContinuationPrompt},
			},
		},
		{
			name: "system messages count as assistant turns",
			history: []types.Message{
				msg("System", types.AuthorSystem, "Welcome!"),
				msg("You", types.AuthorHuman, "hi"),
			},
			roles: OpenAIRoles,
			expected: []Turn{
				{Role: "assistant", Content: "System: Welcome!"},
				{Role: "user", Content: "hi"},
			},
		},
		{
			name: "human turns are never merged",
			history: []types.Message{
				msg("You", types.AuthorHuman, "first"),
				msg("You", types.AuthorHuman, "second"),
			},
			roles: OpenAIRoles,
			expected: []Turn{
				{Role: "user", Content: "first"},
				{Role: "user", Content: "second"},
			},
		},
		{
			name: "gemini role model uses model for assistants",
			history: []types.Message{
				msg("You", types.AuthorHuman, "hi"),
				msg("OR / gpt-4o-mini", types.AuthorOpenRouter, "hello"),
			},
			roles: GeminiRoles,
			expected: []Turn{
				{Role: "user", Content: "hi"},
				{Role: "model", Content: "OR / gpt-4o-mini: hello"},
				{Role: "user", Content: ContinuationPrompt},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatHistory(tt.history, tt.roles)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// genHistory generates arbitrary message logs across all author types.
func genHistory() gopter.Gen {
	authorTypes := []types.AuthorType{
		types.AuthorHuman,
		types.AuthorGemini,
		types.AuthorLMStudio,
		types.AuthorOpenRouter,
		types.AuthorSystem,
	}
	genMsg := gopter.CombineGens(
		gen.IntRange(0, len(authorTypes)-1),
		gen.AlphaString(),
	).Map(func(vals []interface{}) types.Message {
		at := authorTypes[vals[0].(int)]
		author := "You"
		if at != types.AuthorHuman {
			author = "Bot-" + string(at)
		}
		return types.NewMessage(author, at, vals[1].(string))
	})
	return gen.SliceOf(genMsg)
}

// Property: the formatted sequence never contains two adjacent
// same-role turns, for any history.
func TestProperty_FormatHistoryMergeInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("no two adjacent turns share a role", prop.ForAll(
		func(history []types.Message) bool {
			turns := FormatHistory(history, OpenAIRoles)
			for i := 1; i < len(turns); i++ {
				if turns[i].Role == turns[i-1].Role && turns[i].Role == OpenAIRoles.Assistant {
					return false
				}
			}
			return true
		},
		genHistory(),
	))

	properties.TestingRun(t)
}

// Property: a non-empty history ending on a bot-authored message always
// formats to a sequence whose final turn is user-role.
func TestProperty_FormatHistoryContinuationInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("trailing bot message yields trailing user turn", prop.ForAll(
		func(history []types.Message) bool {
			turns := FormatHistory(history, OpenAIRoles)
			if len(history) == 0 {
				return len(turns) == 0
			}
			if history[len(history)-1].AuthorType == types.AuthorHuman {
				return turns[len(turns)-1].Role == OpenAIRoles.User
			}
			// Bot-authored tail: the formatter must have appended the
			// synthetic continuation turn.
			last := turns[len(turns)-1]
			return last.Role == OpenAIRoles.User && last.Content == ContinuationPrompt
		},
		genHistory(),
	))

	properties.TestingRun(t)
}
