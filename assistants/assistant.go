// Package assistants drives the tool-calling conversation loop: detect
// whether the model wants tools, execute them through the registry, feed the
// results back, and stream the final answer as an ordered event sequence.
package assistants

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/parley-ai/parley/chatmodel"
	"github.com/parley-ai/parley/llm"
	"github.com/parley-ai/parley/pkg/metricskey"
	"github.com/parley-ai/parley/registry"
)

var logger = xlog.NewPackageLogger("github.com/parley-ai/parley", "assistants")

// Deterministic fallback answers for turns that end without model content.
// FallbackNotFound is used when tools ran but none produced a usable result;
// FallbackGeneric covers every other degenerate outcome.
const (
	FallbackNotFound = "I checked the available tools but could not find relevant information for your request."
	FallbackGeneric  = "I was not able to produce an answer this time. Please try rephrasing your request."
)

// Assistant runs chat turns against one provider and one tool registry. It is
// stateless across turns except for the optional message store; a single
// Assistant may serve concurrent sessions.
type Assistant struct {
	provider llm.Provider
	registry *registry.Registry
	cfg      *Config
}

// New creates an assistant over the given provider and registry.
func New(provider llm.Provider, reg *registry.Registry, opts ...Option) *Assistant {
	return &Assistant{
		provider: provider,
		registry: reg,
		cfg:      NewConfig(opts...),
	}
}

// ChatStream runs one conversation turn. The returned channel yields the
// ordered event stream and is closed after the terminal done event. The turn
// stops at the next suspension point when ctx is canceled.
func (a *Assistant) ChatStream(ctx context.Context, sessionID, input string) <-chan Event {
	events := make(chan Event)
	go a.run(ctx, sessionID, input, events)
	return events
}

func (a *Assistant) run(ctx context.Context, sessionID, input string, events chan<- Event) {
	defer close(events)
	defer metricskey.PerfChatTurn.MeasureSince(time.Now(), a.cfg.Name)
	metricskey.StatsChatTurns.IncrCounter(1, a.cfg.Name)

	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	defs := a.registry.FunctionDefinitions()
	descs := a.registry.ListTools()

	history := make([]chatmodel.Message, 0, 16)
	history = append(history, chatmodel.SystemMessage(systemPrompt(a.cfg.SystemPrompt, descs)))
	if a.cfg.Store != nil {
		history = append(history, a.cfg.Store.Messages(sessionID)...)
	}
	history = append(history, chatmodel.UserMessage(input))

	detectOpts := append([]llm.CallOption{}, a.cfg.CallOptions...)
	detectOpts = append(detectOpts, llm.WithTools(defs))

	var (
		toolsTried   bool
		anyFound     bool
		contentReady bool
	)

	// Detection loop. With no callable tools it is skipped entirely and the
	// turn goes straight to streaming with tools disabled.
	if len(defs) > 0 {
		for iteration := 0; iteration < a.cfg.MaxIterations; iteration++ {
			metricskey.StatsDetectionCalls.IncrCounter(1, a.cfg.Name)
			det, err := a.provider.Detect(ctx, history, detectOpts...)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.finishError(ctx, err, emit)
				return
			}

			if len(det.ToolCalls) > 0 {
				logger.ContextKV(ctx, xlog.DEBUG,
					"assistant", a.cfg.Name,
					"status", "tool_calls_detected",
					"iteration", iteration,
					"count", len(det.ToolCalls),
				)
				toolsTried = true
				found, ok := a.executeToolCalls(ctx, det.ToolCalls, &history, emit)
				if !ok {
					return
				}
				anyFound = anyFound || found
				continue
			}

			if strings.TrimSpace(det.Content) != "" {
				contentReady = true
			}
			// No tool calls: either the model is ready to answer, or the
			// response was degenerate. Both leave the loop.
			break
		}

		if !contentReady {
			// Degenerate detection or iteration bound reached without
			// terminal content.
			a.finishFallback(ctx, sessionID, input, toolsTried, anyFound, emit)
			return
		}
	}

	a.streamFinal(ctx, sessionID, input, history, toolsTried, anyFound, emit)
}

// streamFinal streams the answer with tools disabled and finishes the turn.
func (a *Assistant) streamFinal(ctx context.Context, sessionID, input string, history []chatmodel.Message, toolsTried, anyFound bool, emit func(Event) bool) {
	var sb strings.Builder
	err := a.provider.Stream(ctx, history, func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		sb.Write(chunk)
		if !emit(Event{Type: EventChunk, Content: string(chunk)}) {
			return ctx.Err()
		}
		return nil
	}, a.cfg.CallOptions...)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.finishError(ctx, err, emit)
		return
	}

	if sb.Len() == 0 {
		a.finishFallback(ctx, sessionID, input, toolsTried, anyFound, emit)
		return
	}

	a.persist(sessionID, input, sb.String())
	emit(Event{Type: EventDone})
}

// finishError surfaces a provider failure as a single terminal chunk. The
// loop is not retried here; retries belong to the provider.
func (a *Assistant) finishError(ctx context.Context, err error, emit func(Event) bool) {
	logger.ContextKV(ctx, xlog.ERROR,
		"assistant", a.cfg.Name,
		"status", "provider_error",
		"err", err.Error(),
	)
	if !emit(Event{Type: EventChunk, Content: "The assistant is unavailable: " + err.Error(), Err: err.Error()}) {
		return
	}
	emit(Event{Type: EventDone})
}

func (a *Assistant) finishFallback(ctx context.Context, sessionID, input string, toolsTried, anyFound bool, emit func(Event) bool) {
	msg := FallbackGeneric
	if toolsTried && !anyFound {
		msg = FallbackNotFound
	}
	metricskey.StatsChatFallbacks.IncrCounter(1, a.cfg.Name)
	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", a.cfg.Name,
		"status", "fallback",
		"tools_tried", toolsTried,
		"any_found", anyFound,
	)

	a.persist(sessionID, input, msg)
	if !emit(Event{Type: EventChunk, Content: msg}) {
		return
	}
	emit(Event{Type: EventDone})
}

func (a *Assistant) persist(sessionID, input, answer string) {
	if a.cfg.Store == nil {
		return
	}
	_ = a.cfg.Store.Add(sessionID,
		chatmodel.UserMessage(input),
		chatmodel.AssistantMessage(answer),
	)
}

// executeToolCalls dispatches one iteration's calls concurrently and awaits
// them as a set. Results are appended to history in call order so the next
// detection sees a deterministic prompt. The returned found flag reports
// whether any call produced a usable result; ok is false when the turn was
// canceled mid-emit.
func (a *Assistant) executeToolCalls(ctx context.Context, calls []chatmodel.ToolCall, history *[]chatmodel.Message, emit func(Event) bool) (found, ok bool) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = fmt.Sprintf("%s_%d", calls[i].Function.Name, i)
		}
		calls[i].Type = values.StringsCoalesce(calls[i].Type, "function")
	}

	*history = append(*history, chatmodel.ToolCallsMessage(calls...))

	for _, tc := range calls {
		if !emit(Event{Type: EventToolCallStart, ToolCallID: tc.ID, ToolName: tc.Function.Name}) {
			return false, false
		}
	}

	type toolCallResult struct {
		index int
		res   registry.ToolResult
	}
	resultChan := make(chan toolCallResult, len(calls))

	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, tc := range calls {
		go func(index int, tc chatmodel.ToolCall) {
			defer wg.Done()
			resultChan <- toolCallResult{index: index, res: a.registry.CallTool(ctx, tc)}
		}(i, tc)
	}
	wg.Wait()
	close(resultChan)

	results := make([]registry.ToolResult, len(calls))
	for r := range resultChan {
		results[r.index] = r.res
	}

	for i, res := range results {
		tc := calls[i]
		if res.Success {
			if res.Found {
				found = true
			}
			if !emit(Event{Type: EventToolCallEnd, ToolCallID: tc.ID, ToolName: tc.Function.Name, Content: res.Content}) {
				return found, false
			}
		} else {
			logger.ContextKV(ctx, xlog.WARNING,
				"assistant", a.cfg.Name,
				"status", "tool_call_failed",
				"tool", tc.Function.Name,
				"err", res.Err,
			)
			if !emit(Event{Type: EventToolCallError, ToolCallID: tc.ID, ToolName: tc.Function.Name, Err: res.Err}) {
				return found, false
			}
		}
		// Failed results feed back too, so the model can adapt.
		*history = append(*history, chatmodel.ToolResponseMessage(tc.ID, tc.Function.Name, res.Content))
	}
	return found, true
}
