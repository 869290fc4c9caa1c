package llm

import "context"

// Role is the author of a model message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the context window sent to the model.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`  // assistant only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool only
}

// ToolCall is a complete function call emitted by the model. Arguments is the
// raw JSON object as produced by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition is a function the model may call. Parameters is a JSON Schema.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest is one model invocation.
type ChatRequest struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// ChatResponse is the fully assembled output of one streamed invocation.
type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// DeltaFunc receives text fragments as the model produces them. Returning an
// error aborts the invocation.
type DeltaFunc func(text string) error

// ChatModel is the interface the orchestrator depends on.
type ChatModel interface {
	StreamChat(ctx context.Context, req ChatRequest, onDelta DeltaFunc) (ChatResponse, error)
}
