package openai

import (
	"testing"

	"github.com/parley-ai/parley/chatmodel"
	"github.com/parley-ai/parley/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New_Validation(t *testing.T) {
	_, err := New(Config{Model: "gpt-4o"})
	assert.EqualError(t, err, "openai: API key is required")

	_, err = New(Config{APIKey: "sk-test"})
	assert.EqualError(t, err, "openai: model is required")

	p, err := New(Config{Name: "qwen", Model: "qwen-plus", APIKey: "sk-test", BaseURL: "https://dashscope.example.com/compatible-mode/v1"})
	require.NoError(t, err)
	assert.Equal(t, "qwen", p.GetName())
}

func Test_ToSDKMessages(t *testing.T) {
	msgs := []chatmodel.Message{
		chatmodel.SystemMessage("be helpful"),
		chatmodel.UserMessage("what is 2+2?"),
		chatmodel.ToolCallsMessage(chatmodel.ToolCall{
			ID:       "call_1",
			Function: chatmodel.FunctionCall{Name: "calculator", Arguments: `{"operation":"add","a":2,"b":2}`},
		}),
		chatmodel.ToolResponseMessage("call_1", "calculator", `{"result":4}`),
		chatmodel.AssistantMessage("2+2 is 4"),
	}

	out := toSDKMessages(msgs)
	require.Len(t, out, 5)
	assert.NotNil(t, out[0].OfSystem)
	assert.NotNil(t, out[1].OfUser)
	require.NotNil(t, out[2].OfAssistant)
	require.Len(t, out[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call_1", out[2].OfAssistant.ToolCalls[0].OfFunction.ID)
	assert.NotNil(t, out[3].OfTool)
	require.NotNil(t, out[4].OfAssistant)
}

func Test_ToParameterMap(t *testing.T) {
	m := toParameterMap(map[string]any{"type": "object"})
	assert.Equal(t, "object", m["type"])

	type schema struct {
		Type string `json:"type"`
	}
	m = toParameterMap(schema{Type: "object"})
	assert.Equal(t, "object", m["type"])

	m = toParameterMap(make(chan int))
	assert.Equal(t, "object", m["type"])
}

func Test_ToSDKTools(t *testing.T) {
	defs := []llm.FunctionDefinition{
		{Name: "calculator", Description: "arithmetic", Parameters: map[string]any{"type": "object"}},
	}
	out := toSDKTools(defs)
	require.Len(t, out, 1)
}
