// Package calculator provides a basic arithmetic tool.
package calculator

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/parley-ai/parley/tools"
)

const ToolName = "calculator"

// Request represents the tool input.
type Request struct {
	Operation string  `json:"operation" jsonschema:"title=Operation,description=The arithmetic operation to perform,enum=add,enum=subtract,enum=multiply,enum=divide"`
	A         float64 `json:"a" jsonschema:"title=A,description=The first operand."`
	B         float64 `json:"b" jsonschema:"title=B,description=The second operand."`
}

// Response represents the tool output.
type Response struct {
	Result float64 `json:"result"`
}

// New creates the calculator tool.
func New() (tools.Tool[Request, Response], error) {
	return tools.NewTool(ToolName,
		"Performs basic arithmetic: add, subtract, multiply, divide.",
		run)
}

func run(_ context.Context, req *Request) (*Response, error) {
	var result float64
	switch req.Operation {
	case "add":
		result = req.A + req.B
	case "subtract":
		result = req.A - req.B
	case "multiply":
		result = req.A * req.B
	case "divide":
		if req.B == 0 {
			return nil, errors.New("division by zero")
		}
		result = req.A / req.B
	default:
		return nil, errors.Newf("unsupported operation: %q", req.Operation)
	}
	return &Response{Result: result}, nil
}
