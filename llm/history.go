package llm

import "botroom/types"

// Turn is one entry of a backend's two-role conversation structure.
type Turn struct {
	Role    string
	Content string
}

// RoleModel names the two conversation roles a backend expects. The
// semantics are identical everywhere; only the names differ.
type RoleModel struct {
	User      string
	Assistant string
}

var (
	// OpenAIRoles is the role model of OpenAI-compatible chat APIs.
	OpenAIRoles = RoleModel{User: "user", Assistant: "assistant"}

	// GeminiRoles is the role model of the Gemini generateContent API.
	GeminiRoles = RoleModel{User: "user", Assistant: "model"}
)

// ContinuationPrompt is the synthetic trailing user turn appended when a
// history ends on an assistant turn. Generation backends require the
// conversation to end on a user turn to produce a response.
const ContinuationPrompt = "Please continue the conversation."

// FormatHistory converts the room log into a backend's two-role turn
// structure:
//
//  1. Human messages map to the user role with raw content; every other
//     author maps to the assistant role with content prefixed by
//     "<author>: " so distinct bots stay distinguishable inside a merged
//     assistant turn.
//  2. Adjacent assistant turns are merged into one, concatenated with a
//     blank line. User turns are never merged.
//  3. A non-empty result ending on an assistant turn gets a synthetic
//     user continuation turn appended.
//
// The function is pure: same history and role model, same output.
func FormatHistory(history []types.Message, roles RoleModel) []Turn {
	turns := make([]Turn, 0, len(history))
	for _, msg := range history {
		if msg.AuthorType == types.AuthorHuman {
			turns = append(turns, Turn{Role: roles.User, Content: msg.Content})
			continue
		}
		content := msg.Author + ": " + msg.Content
		if n := len(turns); n > 0 && turns[n-1].Role == roles.Assistant {
			turns[n-1].Content += "\n\n" + content
			continue
		}
		turns = append(turns, Turn{Role: roles.Assistant, Content: content})
	}

	if n := len(turns); n > 0 && turns[n-1].Role == roles.Assistant {
		turns = append(turns, Turn{Role: roles.User, Content: ContinuationPrompt})
	}
	return turns
}
