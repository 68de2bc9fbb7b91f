// Package pipeline orchestrates the question-to-chart flow: table selection,
// schema introspection, prompt refinement, chart analysis, sampling, the
// synthesize/execute/verify retry loop, and final chart formatting.
package pipeline

import "context"

// EventType classifies progress events sent to the client.
type EventType string

const (
	EventStatus EventType = "status"
	EventResult EventType = "result"
	EventError  EventType = "error"
	EventDone   EventType = "done"
)

// Stage names emitted in status events, in pipeline order.
const (
	StageTableSelection = "table_selection"
	StageSchema         = "schema_introspection"
	StageRefinement     = "prompt_refinement"
	StageAnalysis       = "chart_analysis"
	StageSampling       = "data_sampling"
	StageSynthesis      = "sql_synthesis"
	StageExecution      = "query_execution"
	StageVerification   = "result_verification"
	StageFormatting     = "chart_formatting"
)

// Event is one progress update. Progress is a 0-100 percentage.
type Event struct {
	Type     EventType `json:"type"`
	Stage    string    `json:"stage,omitempty"`
	Message  string    `json:"message,omitempty"`
	Progress int       `json:"progress"`
	Payload  any       `json:"payload,omitempty"`
}

// Sink receives progress events. Implementations must tolerate being called
// after the client has gone away.
type Sink interface {
	Send(ctx context.Context, event Event)
}

// NullSink discards all events.
type NullSink struct{}

func (NullSink) Send(context.Context, Event) {}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Send(ctx context.Context, event Event) { f(ctx, event) }
