package assistants

import (
	"strings"

	"github.com/parley-ai/parley/llmutils"
	"github.com/parley-ai/parley/registry"
)

const defaultSystemPrompt = "You are a helpful assistant. Answer the user's question directly and concisely."

type promptTool struct {
	Name        string         `json:"Name"`
	Description string         `json:"Description"`
	Parameters  map[string]any `json:"Parameters,omitempty"`
}

// systemPrompt augments the base prompt with the registered tool descriptors.
// Nothing here is tool-specific: usage hints come entirely from the
// descriptions and parameter docs the backends publish.
func systemPrompt(base string, descs []registry.ToolDescriptor) string {
	if len(descs) == 0 {
		return base
	}

	list := make([]promptTool, 0, len(descs))
	for _, d := range descs {
		list = append(list, promptTool{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.InputSchema,
		})
	}

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\nYou have access to the following tools. Use a tool when it can help answer the user; otherwise answer directly.")
	sb.WriteString(llmutils.BackticksJSON(llmutils.ToJSONIndent(list)))
	sb.WriteString("Call a tool only with arguments that match its parameter schema.")
	return sb.String()
}
