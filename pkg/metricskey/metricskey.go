// Package metricskey declares the metrics emitted by the tool registry and
// the conversation loop.
package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsToolCallsSucceeded is a counter metric for tool calls that
	// completed with a successful envelope.
	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls to unknown names",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNothingFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_nothing_found",
		Help:         "stats_tool_calls_nothing_found provides total tool calls that ran but found no information",
		RequiredTags: []string{"tool"},
	}

	StatsChatTurns = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_turns",
		Help:         "stats_chat_turns provides total chat turns started",
		RequiredTags: []string{"assistant"},
	}

	StatsChatFallbacks = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_fallbacks",
		Help:         "stats_chat_fallbacks provides total chat turns ended with a fallback answer",
		RequiredTags: []string{"assistant"},
	}

	StatsDetectionCalls = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_detection_calls",
		Help:         "stats_detection_calls provides total tool detection calls to the model",
		RequiredTags: []string{"assistant"},
	}
)

// Perf
var (
	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfChatTurn = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_chat_turn",
		Help:         "perf_chat_turn provides duration of one chat turn",
		RequiredTags: []string{"assistant"},
	}
)

// Metrics is the list of emitted metrics for registration.
var Metrics = []*metrics.Describe{
	&PerfChatTurn,
	&PerfToolCall,
	&StatsChatFallbacks,
	&StatsChatTurns,
	&StatsDetectionCalls,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsNothingFound,
	&StatsToolCallsSucceeded,
}
