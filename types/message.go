// Package types provides core types used across the botroom packages.
// This package has ZERO dependencies on other botroom packages to avoid
// circular imports. All other packages should import types from here.
package types

import "github.com/google/uuid"

// AuthorType identifies which participant produced a message.
type AuthorType string

const (
	AuthorHuman      AuthorType = "human"
	AuthorGemini     AuthorType = "gemini"
	AuthorLMStudio   AuthorType = "lmstudio"
	AuthorOpenRouter AuthorType = "openrouter"
	AuthorSystem     AuthorType = "system"
)

// Message is one entry of the room's append-only conversation log.
// Once appended, its fields never change.
type Message struct {
	ID         string     `json:"id"`
	Author     string     `json:"author"`
	AuthorType AuthorType `json:"author_type"`
	Content    string     `json:"content"`
}

// NewMessage creates a message with a fresh unique ID.
func NewMessage(author string, authorType AuthorType, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		Author:     author,
		AuthorType: authorType,
		Content:    content,
	}
}

// NewHumanMessage creates a message authored by the human participant.
func NewHumanMessage(content string) Message {
	return NewMessage("You", AuthorHuman, content)
}

// NewSystemMessage creates a system notice message.
func NewSystemMessage(content string) Message {
	return NewMessage("System", AuthorSystem, content)
}

// BotDescriptor describes one roster entry for a single orchestration
// round. Descriptors are derived fresh from the settings snapshot each
// round and never persisted.
type BotDescriptor struct {
	DisplayName string
	AuthorType  AuthorType
	Model       string // set for rate-limited backends queried per model id
	Maker       string
}
