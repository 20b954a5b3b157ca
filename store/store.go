// Package store keeps per-session conversation history. History lives in
// process memory only; nothing survives a restart.
package store

import "github.com/parley-ai/parley/chatmodel"

// MessageStore holds the message history of chat sessions.
type MessageStore interface {
	// Messages returns the history of the session in append order.
	Messages(sessionID string) []chatmodel.Message
	// Add appends messages to the session history.
	Add(sessionID string, msgs ...chatmodel.Message) error
	// Reset clears the session history.
	Reset(sessionID string) error
}
