package assistants

// EventType identifies one entry of the ordered event stream a chat turn
// produces.
type EventType string

const (
	// EventChunk carries a piece of the assistant's answer text.
	EventChunk EventType = "chunk"
	// EventToolCallStart announces that a tool call is being dispatched.
	EventToolCallStart EventType = "tool_call_start"
	// EventToolCallEnd reports a completed tool call.
	EventToolCallEnd EventType = "tool_call_end"
	// EventToolCallError reports a failed tool call. The turn continues.
	EventToolCallError EventType = "tool_call_error"
	// EventDone terminates the stream. Always emitted exactly once, last.
	EventDone EventType = "done"
)

// Event is one entry of a chat turn's event stream.
type Event struct {
	Type       EventType `json:"type"`
	Content    string    `json:"content,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
	Err        string    `json:"error,omitempty"`
}
