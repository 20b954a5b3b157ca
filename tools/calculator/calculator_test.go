package calculator_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/parley-ai/parley/chatmodel"
	"github.com/parley-ai/parley/tools/calculator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Call(t *testing.T) {
	tool, err := calculator.New()
	require.NoError(t, err)
	assert.Equal(t, calculator.ToolName, tool.Name())
	assert.NotNil(t, tool.Parameters())

	ctx := context.Background()

	out, err := tool.Call(ctx, `{"operation":"add","a":10,"b":5}`)
	require.NoError(t, err)
	assert.Equal(t, `{"result":15}`, out)

	out, err = tool.Call(ctx, `{"operation":"divide","a":9,"b":3}`)
	require.NoError(t, err)
	assert.Equal(t, `{"result":3}`, out)

	_, err = tool.Call(ctx, `{"operation":"divide","a":1,"b":0}`)
	assert.EqualError(t, err, "division by zero")

	_, err = tool.Call(ctx, `{"operation":"modulo","a":1,"b":2}`)
	assert.EqualError(t, err, `unsupported operation: "modulo"`)

	_, err = tool.Call(ctx, "not json at all")
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))
}

func Test_Run(t *testing.T) {
	tool, err := calculator.New()
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &calculator.Request{Operation: "multiply", A: 6, B: 7})
	require.NoError(t, err)
	assert.Equal(t, float64(42), res.Result)
}
