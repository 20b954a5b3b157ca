package assistants

import (
	"testing"

	"github.com/parley-ai/parley/registry"
	"github.com/stretchr/testify/assert"
)

func Test_SystemPrompt(t *testing.T) {
	base := "You are a support agent."

	assert.Equal(t, base, systemPrompt(base, nil))

	descs := []registry.ToolDescriptor{
		{
			Name:        "calculator",
			Description: "Performs basic arithmetic.",
			InputSchema: map[string]any{"type": "object"},
			Backend:     "builtin",
		},
	}
	out := systemPrompt(base, descs)
	assert.Contains(t, out, base)
	assert.Contains(t, out, "```json")
	assert.Contains(t, out, `"Name": "calculator"`)
	assert.Contains(t, out, "Performs basic arithmetic.")
	// backend attribution stays internal
	assert.NotContains(t, out, "builtin")
}

func Test_NewConfig(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, defaultSystemPrompt, cfg.SystemPrompt)

	cfg = NewConfig(
		WithName("helper"),
		WithMaxIterations(2),
		WithSystemPrompt("custom"),
	)
	assert.Equal(t, "helper", cfg.Name)
	assert.Equal(t, 2, cfg.MaxIterations)
	assert.Equal(t, "custom", cfg.SystemPrompt)

	// non-positive iteration counts keep the default
	cfg = NewConfig(WithMaxIterations(0))
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
}
