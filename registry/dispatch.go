package registry

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/parley-ai/parley/llmutils"
	"github.com/parley-ai/parley/mcp"
	"github.com/parley-ai/parley/pkg/metricskey"
)

// NoInformationFound is the deterministic content of a successful tool call
// that produced no usable answer. Callers can distinguish it from real output
// via ToolResult.Found.
const NoInformationFound = "no information found"

// ToolResult is the uniform envelope every tool invocation produces. It is
// always returned, never dropped: failures and panics are folded into it.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	// Success is false when the call failed outright (backend error, timeout,
	// panic, malformed arguments).
	Success bool `json:"success"`
	// Found is false when the tool ran but reported no usable answer.
	Found   bool   `json:"found"`
	Content string `json:"content,omitempty"`
	// Payload carries the structured backend output when one was recognized.
	Payload any    `json:"payload,omitempty"`
	Err     string `json:"error,omitempty"`
}

func failedResult(toolName, msg string) ToolResult {
	return ToolResult{
		ToolName: toolName,
		Content:  msg,
		Err:      msg,
	}
}

// dispatch runs one tool call against its backend with a bounded timeout and
// panic recovery. Nothing escapes: the outcome is always a ToolResult.
func dispatch(ctx context.Context, conn Connection, toolName string, args map[string]any, timeout time.Duration) ToolResult {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()

	type outcome struct {
		raw any
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: errors.Newf("tool %s panicked: %v", toolName, r)}
			}
		}()
		raw, err := conn.Call(ctx, toolName, args)
		ch <- outcome{raw: raw, err: err}
	}()

	var res ToolResult
	select {
	case <-ctx.Done():
		res = failedResult(toolName, errors.Wrapf(ctx.Err(), "tool %s", toolName).Error())
	case out := <-ch:
		if out.err != nil {
			res = failedResult(toolName, out.err.Error())
		} else {
			res = normalize(toolName, out.raw)
		}
	}
	metricskey.PerfToolCall.MeasureSince(started, toolName)

	switch {
	case !res.Success:
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
	case !res.Found:
		metricskey.StatsToolCallsNothingFound.IncrCounter(1, toolName)
	default:
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	}
	return res
}

// normalize converts raw backend output into the uniform envelope. Rules,
// in order: nil and blank text report not found; JSON text is parsed and
// treated as its structured value; protocol results are reduced to their text
// parts first; mappings get answer/results/error handling; anything else is
// serialized generically.
func normalize(toolName string, raw any) ToolResult {
	switch v := raw.(type) {
	case nil:
		return ToolResult{
			ToolName: toolName,
			Success:  true,
			Content:  NoInformationFound,
		}
	case string:
		return normalizeText(toolName, v)
	case *mcp.CallResult:
		return normalizeText(toolName, v.Text())
	case mcp.CallResult:
		return normalizeText(toolName, v.Text())
	case map[string]any:
		return normalizeMap(toolName, v)
	default:
		return ToolResult{
			ToolName: toolName,
			Success:  true,
			Found:    true,
			Content:  llmutils.ToJSON(v),
			Payload:  v,
		}
	}
}

func normalizeText(toolName, text string) ToolResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return ToolResult{
			ToolName: toolName,
			Success:  true,
			Content:  NoInformationFound,
		}
	}

	// Tools frequently return JSON-encoded structures as text.
	if text[0] == '{' {
		var m map[string]any
		if err := json.Unmarshal([]byte(text), &m); err == nil {
			return normalizeMap(toolName, m)
		}
	}

	return ToolResult{
		ToolName: toolName,
		Success:  true,
		Found:    true,
		Content:  text,
	}
}

func normalizeMap(toolName string, m map[string]any) ToolResult {
	if msg, ok := m["error"].(string); ok && msg != "" {
		return failedResult(toolName, msg)
	}

	if rt, ok := m["result-text"].(string); ok {
		return normalizeText(toolName, rt)
	}

	answer, hasAnswer := m["answer"].(string)
	results, hasResults := m["results"].([]any)
	if hasAnswer || hasResults {
		res := ToolResult{
			ToolName: toolName,
			Success:  true,
			Payload:  m,
		}
		switch {
		case strings.TrimSpace(answer) != "":
			res.Found = true
			res.Content = answer
		case len(results) > 0:
			res.Found = true
			res.Content = llmutils.ToJSON(results)
		default:
			res.Content = NoInformationFound
		}
		return res
	}

	return ToolResult{
		ToolName: toolName,
		Success:  true,
		Found:    true,
		Content:  llmutils.ToJSON(m),
		Payload:  m,
	}
}
