// Package tools defines the tool contract local backends implement, and a
// typed helper that derives the parameter schema from the input struct.
package tools

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/parley-ai/parley/chatmodel"
	"github.com/parley-ai/parley/llmutils"
	"github.com/parley-ai/parley/schema"
)

// ITool is a tool the agent can invoke during a conversation.
type ITool interface {
	// Name returns the name of the tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the parameters definition of the function, to be used in the prompt.
	Parameters() any

	// Call executes the tool with the given JSON input and returns the result.
	// If the tool fails to parse the input, it returns ErrFailedUnmarshalInput.
	Call(context.Context, string) (string, error)
}

// Tool is a typed tool with a structured input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// Base implements the ITool plumbing shared by typed tools: schema derivation
// from the input type and JSON decoding of the raw call input.
type Base[I any, O any] struct {
	name        string
	description string
	params      any

	run func(context.Context, *I) (*O, error)
}

// NewTool builds a typed tool around a run function. The parameter schema is
// reflected from I.
func NewTool[I any, O any](name, description string, run func(context.Context, *I) (*O, error)) (*Base[I, O], error) {
	var in I
	sc, err := schema.New(reflect.TypeOf(in))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create schema for %s", name)
	}
	return &Base[I, O]{
		name:        name,
		description: description,
		params:      sc.Parameters,
		run:         run,
	}, nil
}

func (t *Base[I, O]) Name() string {
	return t.name
}

func (t *Base[I, O]) Description() string {
	return t.description
}

func (t *Base[I, O]) Parameters() any {
	return t.params
}

func (t *Base[I, O]) Run(ctx context.Context, req *I) (*O, error) {
	return t.run(ctx, req)
}

func (t *Base[I, O]) Call(ctx context.Context, input string) (string, error) {
	var req I
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	out, err := t.run(ctx, &req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(out), nil
}
