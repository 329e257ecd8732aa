package room

import (
	"fmt"
	"strings"

	"botroom/types"
)

// Display metadata per backend.
const (
	geminiDisplayName   = "Gemini"
	lmStudioDisplayName = "LM Studio"

	geminiMaker   = "Google"
	lmStudioMaker = "the user via LM Studio"
)

// directedInstruction is the system instruction every bot receives in a
// round triggered by a human message.
const directedInstruction = "You are a helpful AI assistant in a chat room with other AIs and a human. " +
	"The human has just sent a message. Please provide a direct, helpful, and concise response to the human user."

// autonomousInstruction frames the bot as a peer participant rather
// than an assistant.
func autonomousInstruction(bot types.BotDescriptor) string {
	return fmt.Sprintf("You are %s, an AI in a chat room. Engage naturally. Your maker is %s.",
		bot.DisplayName, bot.Maker)
}

// roster is the partitioned set of bots taking part in one round.
// Concurrent-capable backends have no mandated inter-call spacing; the
// rate-limited group (OpenRouter, one entry per model id) is queried
// strictly sequentially.
type roster struct {
	concurrent []types.BotDescriptor
	sequential []types.BotDescriptor

	// missingKey marks that the rate-limited group was requested but
	// dropped for this round because its credential is absent.
	missingKey bool
}

// buildRoster derives a fresh roster from a settings snapshot.
func buildRoster(settings types.Settings) roster {
	var r roster

	if settings.ActiveBots.Gemini {
		r.concurrent = append(r.concurrent, types.BotDescriptor{
			DisplayName: geminiDisplayName,
			AuthorType:  types.AuthorGemini,
			Maker:       geminiMaker,
		})
	}
	if settings.ActiveBots.LMStudio {
		r.concurrent = append(r.concurrent, types.BotDescriptor{
			DisplayName: lmStudioDisplayName,
			AuthorType:  types.AuthorLMStudio,
			Maker:       lmStudioMaker,
		})
	}

	if len(settings.ActiveBots.OpenRouterModels) > 0 {
		if strings.TrimSpace(settings.OpenRouterAPIKey) == "" {
			r.missingKey = true
		} else {
			for _, model := range settings.ActiveBots.OpenRouterModels {
				r.sequential = append(r.sequential, types.BotDescriptor{
					DisplayName: openRouterDisplayName(model),
					AuthorType:  types.AuthorOpenRouter,
					Model:       model,
					Maker:       openRouterMaker(model),
				})
			}
		}
	}

	return r
}

func (r roster) size() int {
	return len(r.concurrent) + len(r.sequential)
}

// names lists every roster member's display name, concurrent group
// first, preserving roster order.
func (r roster) names() []string {
	out := make([]string, 0, r.size())
	for _, b := range r.concurrent {
		out = append(out, b.DisplayName)
	}
	for _, b := range r.sequential {
		out = append(out, b.DisplayName)
	}
	return out
}

// openRouterDisplayName shortens a model id to its name suffix, e.g.
// "anthropic/claude-3-haiku" becomes "OR / claude-3-haiku".
func openRouterDisplayName(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		return "OR / " + model[i+1:]
	}
	return "OR / " + model
}

// openRouterMaker derives the maker label from the model id's org
// prefix, falling back to a generic label.
func openRouterMaker(model string) string {
	if i := strings.Index(model, "/"); i > 0 {
		return model[:i]
	}
	return "OpenRouter"
}

// authorName picks the author recorded on an appended reply: OpenRouter
// replies are authored by their full model id, everything else by the
// bot's display name.
func authorName(bot types.BotDescriptor) string {
	if bot.AuthorType == types.AuthorOpenRouter && bot.Model != "" {
		return bot.Model
	}
	return bot.DisplayName
}
