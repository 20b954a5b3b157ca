package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parley-ai/parley/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanTransport is an in-memory Transport backed by channels, with a scripted
// server loop on the other end.
type chanTransport struct {
	requests  chan []byte
	responses chan []byte
	closed    atomic.Bool
}

func newChanTransport() *chanTransport {
	return &chanTransport{
		requests:  make(chan []byte, 16),
		responses: make(chan []byte, 16),
	}
}

func (t *chanTransport) Send(_ context.Context, payload []byte) error {
	t.requests <- payload
	return nil
}

func (t *chanTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-t.responses:
		return msg, nil
	}
}

func (t *chanTransport) Close() error {
	t.closed.Store(true)
	return nil
}

type rpcRequest struct {
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// serve answers each incoming request with handler's result until the
// transport is drained or the test ends.
func (t *chanTransport) serve(tb testing.TB, handler func(req rpcRequest) any) {
	tb.Helper()
	go func() {
		for raw := range t.requests {
			var req rpcRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return
			}
			result := handler(req)
			resp, _ := json.Marshal(map[string]any{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
			t.responses <- resp
		}
	}()
}

func initResult() map[string]any {
	return map[string]any{
		"protocolVersion": "2024-11-05",
		"serverInfo":      map[string]any{"name": "fake-server", "version": "1.0.0"},
	}
}

func Test_Client_HandshakeAndListTools(t *testing.T) {
	tr := newChanTransport()
	tr.serve(t, func(req rpcRequest) any {
		switch req.Method {
		case "initialize":
			return initResult()
		case "tools/list":
			if cursor, ok := req.Params["cursor"]; ok {
				assert.Equal(t, "page2", cursor)
				return map[string]any{
					"tools": []map[string]any{{"name": "faq_lookup", "description": "FAQ lookup"}},
				}
			}
			return map[string]any{
				"tools":      []map[string]any{{"name": "web_search", "description": "Search the web"}},
				"nextCursor": "page2",
			}
		}
		return map[string]any{}
	})

	ctx := context.Background()
	client, err := mcp.NewClient(ctx, tr, mcp.ClientInfo{Name: "parley-test"})
	require.NoError(t, err)
	assert.Equal(t, "fake-server", client.Server().Name)

	tools, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "web_search", tools[0].Name)
	assert.Equal(t, "faq_lookup", tools[1].Name)
}

func Test_Client_CallTool(t *testing.T) {
	tr := newChanTransport()
	tr.serve(t, func(req rpcRequest) any {
		switch req.Method {
		case "initialize":
			return initResult()
		case "tools/call":
			assert.Equal(t, "calculator", req.Params["name"])
			args := req.Params["arguments"].(map[string]any)
			assert.Equal(t, "add", args["operation"])
			return map[string]any{
				"content": []map[string]any{{"type": "text", "text": `{"result":15}`}},
			}
		}
		return map[string]any{}
	})

	ctx := context.Background()
	client, err := mcp.NewClient(ctx, tr, mcp.ClientInfo{})
	require.NoError(t, err)

	res, err := client.CallTool(ctx, "calculator", map[string]any{"operation": "add", "a": 10, "b": 5})
	require.NoError(t, err)
	assert.Equal(t, `{"result":15}`, res.Text())
}

func Test_Client_ToolError(t *testing.T) {
	tr := newChanTransport()
	tr.serve(t, func(req rpcRequest) any {
		switch req.Method {
		case "initialize":
			return initResult()
		case "tools/call":
			return map[string]any{
				"isError": true,
				"content": []map[string]any{{"type": "text", "text": "division by zero"}},
			}
		}
		return map[string]any{}
	})

	ctx := context.Background()
	client, err := mcp.NewClient(ctx, tr, mcp.ClientInfo{})
	require.NoError(t, err)

	_, err = client.CallTool(ctx, "calculator", map[string]any{"operation": "divide", "a": 1, "b": 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func Test_Client_ConcurrentCalls(t *testing.T) {
	tr := newChanTransport()
	tr.serve(t, func(req rpcRequest) any {
		switch req.Method {
		case "initialize":
			return initResult()
		case "tools/call":
			// echo the argument back so each caller can verify its own reply
			args := req.Params["arguments"].(map[string]any)
			return map[string]any{
				"content": []map[string]any{{"type": "text", "text": fmt.Sprint(args["i"])}},
			}
		}
		return map[string]any{}
	})

	client, err := mcp.NewClient(context.Background(), tr, mcp.ClientInfo{})
	require.NoError(t, err)

	// concurrent callers degrade to sequential completion over the single
	// connection; every call must still get its own response
	var wg sync.WaitGroup
	errs := make([]error, 10)
	texts := make([]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := client.CallTool(context.Background(), "echo", map[string]any{"i": i})
			errs[i] = err
			if err == nil {
				texts[i] = res.Text()
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprint(i), texts[i])
	}
}

func Test_Client_SkipsNotifications(t *testing.T) {
	tr := newChanTransport()
	go func() {
		for raw := range tr.requests {
			var req rpcRequest
			if json.Unmarshal(raw, &req) != nil {
				return
			}
			if req.Method == "initialize" {
				// Interleave a notification before the real response.
				note, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "notifications/progress"})
				tr.responses <- note
				resp, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": initResult()})
				tr.responses <- resp
			}
		}
	}()

	client, err := mcp.NewClient(context.Background(), tr, mcp.ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "fake-server", client.Server().Name)
}

func Test_Client_CloseIdempotent(t *testing.T) {
	tr := newChanTransport()
	tr.serve(t, func(req rpcRequest) any { return initResult() })

	client, err := mcp.NewClient(context.Background(), tr, mcp.ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.True(t, tr.closed.Load())

	_, err = client.ListTools(context.Background())
	require.Error(t, err)
}

func Test_Client_ReceiveHonorsDeadline(t *testing.T) {
	tr := newChanTransport()
	// Answer the handshake, then swallow everything else so no response
	// ever arrives for tools/call.
	go func() {
		for raw := range tr.requests {
			var req rpcRequest
			if json.Unmarshal(raw, &req) != nil || req.Method != "initialize" {
				continue
			}
			resp, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": initResult()})
			tr.responses <- resp
		}
	}()

	client, err := mcp.NewClient(context.Background(), tr, mcp.ClientInfo{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.CallTool(ctx, "slow_tool", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
