package assistants_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/parley-ai/parley/assistants"
	"github.com/parley-ai/parley/chatmodel"
	"github.com/parley-ai/parley/llm"
	"github.com/parley-ai/parley/registry"
	"github.com/parley-ai/parley/store"
	"github.com/parley-ai/parley/tools"
	"github.com/parley-ai/parley/tools/calculator"
	"github.com/parley-ai/parley/tools/faq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider replays scripted detections and stream chunks. When the
// detection script is exhausted the last step repeats.
type fakeProvider struct {
	mu          sync.Mutex
	detections  []detectStep
	chunks      []string
	streamErr   error
	detectCalls int
	streamCalls int
	lastHistory []chatmodel.Message
}

type detectStep struct {
	det *llm.Detection
	err error
}

func (p *fakeProvider) GetName() string { return "fake" }

func (p *fakeProvider) Detect(_ context.Context, messages []chatmodel.Message, _ ...llm.CallOption) (*llm.Detection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detectCalls++
	p.lastHistory = messages

	idx := p.detectCalls - 1
	if idx >= len(p.detections) {
		idx = len(p.detections) - 1
	}
	step := p.detections[idx]
	return step.det, step.err
}

func (p *fakeProvider) Stream(ctx context.Context, messages []chatmodel.Message, fn llm.StreamFunc, _ ...llm.CallOption) error {
	p.mu.Lock()
	p.streamCalls++
	p.lastHistory = messages
	chunks := p.chunks
	err := p.streamErr
	p.mu.Unlock()

	if err != nil {
		return err
	}
	for _, c := range chunks {
		if e := fn(ctx, []byte(c)); e != nil {
			return e
		}
	}
	return nil
}

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatal("event stream did not close")
		}
	}
}

type Event = assistants.Event

func eventTypes(events []Event) []assistants.EventType {
	types := make([]assistants.EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func newTestRegistry(t *testing.T, list ...tools.ITool) *registry.Registry {
	t.Helper()
	cfg := &registry.Config{
		Backends: []*registry.BackendConfig{{Name: "builtin", Transport: registry.TransportLocal}},
	}
	reg, err := registry.NewRegistry(cfg, registry.WithLocalTools("builtin", list...))
	require.NoError(t, err)
	require.NoError(t, reg.InitializeAll(context.Background()))
	return reg
}

func detectContent(content string) detectStep {
	return detectStep{det: &llm.Detection{Content: content}}
}

func detectCalls(calls ...chatmodel.ToolCall) detectStep {
	return detectStep{det: &llm.Detection{ToolCalls: calls}}
}

func calcCall(id, args string) chatmodel.ToolCall {
	return chatmodel.ToolCall{
		ID:       id,
		Function: chatmodel.FunctionCall{Name: calculator.ToolName, Arguments: args},
	}
}

func Test_ChatStream_DirectAnswer(t *testing.T) {
	calc, err := calculator.New()
	require.NoError(t, err)
	reg := newTestRegistry(t, calc)

	provider := &fakeProvider{
		detections: []detectStep{detectContent("ready")},
		chunks:     []string{"Hello ", "world"},
	}
	st := store.NewMemoryStore()
	a := assistants.New(provider, reg, assistants.WithStore(st))

	events := collect(t, a.ChatStream(context.Background(), "s1", "say hello"))
	assert.Equal(t, []assistants.EventType{
		assistants.EventChunk, assistants.EventChunk, assistants.EventDone,
	}, eventTypes(events))
	assert.Equal(t, "Hello ", events[0].Content)
	assert.Equal(t, "world", events[1].Content)
	assert.Equal(t, 1, provider.detectCalls)
	assert.Equal(t, 1, provider.streamCalls)

	msgs := st.Messages("s1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "say hello", msgs[0].Content)
	assert.Equal(t, "Hello world", msgs[1].Content)
}

func Test_ChatStream_ToolCallThenAnswer(t *testing.T) {
	calc, err := calculator.New()
	require.NoError(t, err)
	reg := newTestRegistry(t, calc)

	provider := &fakeProvider{
		detections: []detectStep{
			detectCalls(calcCall("call_1", `{"operation":"add","a":10,"b":5}`)),
			detectContent("the sum is 15"),
		},
		chunks: []string{"The sum is 15."},
	}
	a := assistants.New(provider, reg)

	events := collect(t, a.ChatStream(context.Background(), "s1", "what is 10+5?"))
	assert.Equal(t, []assistants.EventType{
		assistants.EventToolCallStart, assistants.EventToolCallEnd,
		assistants.EventChunk, assistants.EventDone,
	}, eventTypes(events))
	assert.Equal(t, calculator.ToolName, events[0].ToolName)
	assert.Equal(t, `{"result":15}`, events[1].Content)
	assert.Equal(t, 2, provider.detectCalls)

	// the tool exchange was fed back before the final stream
	var sawToolMsg bool
	for _, m := range provider.lastHistory {
		if m.Role == chatmodel.RoleTool && m.ToolCallID == "call_1" {
			sawToolMsg = true
			assert.Equal(t, `{"result":15}`, m.Content)
		}
	}
	assert.True(t, sawToolMsg)
}

func Test_ChatStream_BoundedTermination(t *testing.T) {
	faqTool, err := faq.New(nil)
	require.NoError(t, err)
	reg := newTestRegistry(t, faqTool)

	// detection always asks for another lookup that finds nothing
	provider := &fakeProvider{
		detections: []detectStep{
			detectCalls(chatmodel.ToolCall{
				ID:       "call_1",
				Function: chatmodel.FunctionCall{Name: faq.ToolName, Arguments: `{"query":"anything"}`},
			}),
		},
	}
	a := assistants.New(provider, reg, assistants.WithMaxIterations(4))

	events := collect(t, a.ChatStream(context.Background(), "s1", "tell me something"))
	require.Equal(t, 4, provider.detectCalls)
	assert.Equal(t, 0, provider.streamCalls)

	last := events[len(events)-1]
	assert.Equal(t, assistants.EventDone, last.Type)
	fallback := events[len(events)-2]
	assert.Equal(t, assistants.EventChunk, fallback.Type)
	assert.Equal(t, assistants.FallbackNotFound, fallback.Content)
}

func Test_ChatStream_MalformedArgumentsContinue(t *testing.T) {
	calc, err := calculator.New()
	require.NoError(t, err)
	reg := newTestRegistry(t, calc)

	provider := &fakeProvider{
		detections: []detectStep{
			detectCalls(calcCall("call_1", `{"operation":"ad`)),
			detectContent("recovered"),
		},
		chunks: []string{"All good."},
	}
	a := assistants.New(provider, reg)

	events := collect(t, a.ChatStream(context.Background(), "s1", "add numbers"))
	assert.Equal(t, []assistants.EventType{
		assistants.EventToolCallStart, assistants.EventToolCallError,
		assistants.EventChunk, assistants.EventDone,
	}, eventTypes(events))
	assert.Contains(t, events[1].Err, "not valid JSON")
	assert.Equal(t, 2, provider.detectCalls)
}

func Test_ChatStream_FailureIsolatedInFanOut(t *testing.T) {
	calc, err := calculator.New()
	require.NoError(t, err)
	reg := newTestRegistry(t, calc)

	provider := &fakeProvider{
		detections: []detectStep{
			detectCalls(
				calcCall("call_1", `{"operation":"divide","a":1,"b":0}`),
				calcCall("call_2", `{"operation":"add","a":2,"b":3}`),
			),
			detectContent("done"),
		},
		chunks: []string{"2+3 is 5."},
	}
	a := assistants.New(provider, reg)

	events := collect(t, a.ChatStream(context.Background(), "s1", "divide and add"))
	assert.Equal(t, []assistants.EventType{
		assistants.EventToolCallStart, assistants.EventToolCallStart,
		assistants.EventToolCallError, assistants.EventToolCallEnd,
		assistants.EventChunk, assistants.EventDone,
	}, eventTypes(events))
	assert.Equal(t, "call_1", events[2].ToolCallID)
	assert.Contains(t, events[2].Err, "division by zero")
	assert.Equal(t, "call_2", events[3].ToolCallID)
	assert.Equal(t, `{"result":5}`, events[3].Content)
}

func Test_ChatStream_ProviderError(t *testing.T) {
	calc, err := calculator.New()
	require.NoError(t, err)
	reg := newTestRegistry(t, calc)

	provider := &fakeProvider{
		detections: []detectStep{{err: errors.New("upstream is down")}},
	}
	a := assistants.New(provider, reg)

	events := collect(t, a.ChatStream(context.Background(), "s1", "hello"))
	require.Len(t, events, 2)
	assert.Equal(t, assistants.EventChunk, events[0].Type)
	assert.Contains(t, events[0].Content, "upstream is down")
	assert.Equal(t, "upstream is down", events[0].Err)
	assert.Equal(t, assistants.EventDone, events[1].Type)
}

func Test_ChatStream_EmptyStreamFallsBack(t *testing.T) {
	calc, err := calculator.New()
	require.NoError(t, err)
	reg := newTestRegistry(t, calc)

	provider := &fakeProvider{
		detections: []detectStep{detectContent("ready")},
		chunks:     nil,
	}
	a := assistants.New(provider, reg)

	events := collect(t, a.ChatStream(context.Background(), "s1", "hello"))
	require.Len(t, events, 2)
	assert.Equal(t, assistants.FallbackGeneric, events[0].Content)
	assert.Equal(t, assistants.EventDone, events[1].Type)
}

func Test_ChatStream_NoToolsSkipsDetection(t *testing.T) {
	reg := newTestRegistry(t)

	provider := &fakeProvider{
		detections: []detectStep{detectContent("unused")},
		chunks:     []string{"plain answer"},
	}
	a := assistants.New(provider, reg)

	events := collect(t, a.ChatStream(context.Background(), "s1", "hello"))
	assert.Equal(t, 0, provider.detectCalls)
	assert.Equal(t, 1, provider.streamCalls)
	assert.Equal(t, []assistants.EventType{
		assistants.EventChunk, assistants.EventDone,
	}, eventTypes(events))
}

func Test_ChatStream_Canceled(t *testing.T) {
	calc, err := calculator.New()
	require.NoError(t, err)
	reg := newTestRegistry(t, calc)

	blocked := &blockingProvider{}
	a := assistants.New(blocked, reg)

	ctx, cancel := context.WithCancel(context.Background())
	ch := a.ChatStream(ctx, "s1", "hello")
	cancel()

	events := collect(t, ch)
	for _, ev := range events {
		assert.NotEqual(t, assistants.EventDone, ev.Type)
	}
}

// blockingProvider waits for cancellation on every call.
type blockingProvider struct{}

func (p *blockingProvider) GetName() string { return "blocking" }

func (p *blockingProvider) Detect(ctx context.Context, _ []chatmodel.Message, _ ...llm.CallOption) (*llm.Detection, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *blockingProvider) Stream(ctx context.Context, _ []chatmodel.Message, _ llm.StreamFunc, _ ...llm.CallOption) error {
	<-ctx.Done()
	return ctx.Err()
}
