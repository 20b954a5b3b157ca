// Package chatmodel defines the conversation data model shared by the
// registry, the completion providers and the orchestration loop.
package chatmodel

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidToolArguments is returned when streamed tool-call arguments do
	// not deserialize as one complete JSON value.
	ErrInvalidToolArguments = errors.New("tool call arguments are not valid JSON: check the schema and try again")

	// ErrFailedUnmarshalInput is returned by a tool when its input does not
	// match the published schema.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem is the system prompt.
	RoleSystem Role = "system"
	// RoleUser is a message sent by the end user.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the model.
	RoleAssistant Role = "assistant"
	// RoleTool is the result of a tool execution fed back to the model.
	RoleTool Role = "tool"
)

// FunctionCall is the name and raw arguments of a function requested by the
// model. Arguments is a JSON document accumulated from the provider response.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a single tool invocation requested by the model. ID correlates
// the request with its tool-role response message.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// ParseArguments deserializes the accumulated argument text as one complete
// JSON object. Partial or invalid accumulation returns ErrInvalidToolArguments.
func (c ToolCall) ParseArguments() (map[string]any, error) {
	if c.Function.Arguments == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(c.Function.Arguments), &args); err != nil {
		return nil, errors.WithMessagef(ErrInvalidToolArguments, "tool %s", c.Function.Name)
	}
	return args, nil
}

// Message is one entry of a conversation. A message carries either plain
// content, an assistant tool request (ToolCalls), or a tool result linked by
// ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant-role message with plain content.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolCallsMessage creates the assistant-role message that records the tool
// requests produced by the model.
func ToolCallsMessage(calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

// ToolResponseMessage creates the tool-role message carrying a tool result
// back into the conversation.
func ToolResponseMessage(callID, toolName, content string) Message {
	return Message{
		Role:       RoleTool,
		ToolCallID: callID,
		Name:       toolName,
		Content:    content,
	}
}
