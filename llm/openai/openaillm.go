// Package openai implements llm.Provider on top of the official OpenAI SDK.
// Any OpenAI-compatible endpoint (OpenAI, Azure OpenAI, DashScope/Qwen, vLLM)
// can be targeted via the base URL.
package openai

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/parley-ai/parley/chatmodel"
	"github.com/parley-ai/parley/llm"
)

var logger = xlog.NewPackageLogger("github.com/parley-ai/parley", "openai")

// Provider is an OpenAI-compatible chat completion provider.
type Provider struct {
	client openaisdk.Client
	name   string
	model  string
}

var _ llm.Provider = (*Provider)(nil)

// Config describes one OpenAI-compatible endpoint.
type Config struct {
	// Name identifies the provider in logs.
	Name string
	// Model is the default model for all calls.
	Model string
	// BaseURL overrides the default API endpoint; empty means api.openai.com.
	BaseURL string
	// APIKey authenticates the client.
	APIKey string
}

// New creates a provider for the configured endpoint.
func New(cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	return &Provider{
		client: openaisdk.NewClient(opts...),
		name:   name,
		model:  cfg.Model,
	}, nil
}

// GetName returns the configured provider name.
func (p *Provider) GetName() string {
	return p.name
}

// Detect performs a non-streaming completion with the tool schemas attached
// and reports whether the model requested tool calls.
func (p *Provider) Detect(ctx context.Context, messages []chatmodel.Message, options ...llm.CallOption) (*llm.Detection, error) {
	opts := llm.ApplyOptions(options...)
	params := p.newParams(messages, opts)

	if len(opts.Tools) > 0 {
		params.Tools = toSDKTools(opts.Tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "completion request failed")
	}
	if len(resp.Choices) == 0 {
		return &llm.Detection{}, nil
	}

	msg := resp.Choices[0].Message
	det := &llm.Detection{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		det.ToolCalls = append(det.ToolCalls, chatmodel.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: chatmodel.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"provider", p.name,
		"status", "detection",
		"tool_calls", len(det.ToolCalls),
		"content_len", len(det.Content),
	)
	return det, nil
}

// Stream generates the final answer and forwards each text delta to fn.
func (p *Provider) Stream(ctx context.Context, messages []chatmodel.Message, fn llm.StreamFunc, options ...llm.CallOption) error {
	opts := llm.ApplyOptions(options...)
	params := p.newParams(messages, opts)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := fn(ctx, []byte(delta)); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return errors.Wrap(err, "streaming request failed")
	}
	return nil
}

func (p *Provider) newParams(messages []chatmodel.Message, opts *llm.CallOptions) openaisdk.ChatCompletionNewParams {
	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: toSDKMessages(messages),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(opts.MaxTokens))
	}
	if opts.HasTemperature() {
		params.Temperature = openaisdk.Float(opts.Temperature)
	}
	return params
}

func toSDKMessages(messages []chatmodel.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chatmodel.RoleSystem:
			out = append(out, openaisdk.SystemMessage(m.Content))
		case chatmodel.RoleUser:
			out = append(out, openaisdk.UserMessage(m.Content))
		case chatmodel.RoleTool:
			out = append(out, openaisdk.ToolMessage(m.Content, m.ToolCallID))
		default:
			asst := openaisdk.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openaisdk.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openaisdk.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Function.Name,
							Arguments: tc.Function.Arguments,
						},
					},
				})
			}
			out = append(out, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func toSDKTools(tools []llm.FunctionDefinition) []openaisdk.ChatCompletionToolUnionParam {
	out := make([]openaisdk.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openaisdk.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openaisdk.String(t.Description),
			Parameters:  shared.FunctionParameters(toParameterMap(t.Parameters)),
		}))
	}
	return out
}

// toParameterMap coerces arbitrary schema values into the map shape the SDK
// expects. Schemas generated by the tools package round-trip through JSON.
func toParameterMap(params any) map[string]any {
	if m, ok := params.(map[string]any); ok {
		return m
	}
	bs, err := json.Marshal(params)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(bs, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
