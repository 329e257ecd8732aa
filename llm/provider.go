// Package llm defines the uniform contract between the room orchestrator
// and the chat-completion backends, plus the history formatting shared by
// all of them.
package llm

import (
	"context"

	"botroom/types"
)

// Provider is the single interface every backend adapter satisfies.
// A call issues exactly one upstream request; there are no retries inside
// an adapter — retry policy belongs to the caller.
//
// Failures are reported as *types.Error: ErrCredentialsMissing when the
// required credential or endpoint is absent, ErrAuthentication when the
// upstream rejects the credential, ErrUpstreamError for everything else
// (transport, parse, and empty-reply failures included).
type Provider interface {
	// Name returns the provider's unique identifier.
	Name() string

	// GenerateReply produces one reply to the given conversation history.
	// The history is a snapshot of the room log taken at round start;
	// systemInstruction steers the bot's persona for this round.
	GenerateReply(ctx context.Context, history []types.Message, systemInstruction string) (string, error)
}
