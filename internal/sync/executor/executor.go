// Package executor sends one queued mutation to the remote API and
// classifies the result. It never retries; retry policy belongs to the
// engine's processor.
package executor

import (
	"context"

	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// OutcomeKind classifies the result of one remote call.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeConflict
	OutcomeRetryable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeConflict:
		return "conflict"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "unknown"
	}
}

// Outcome is what the processor acts on after an Execute call.
type Outcome struct {
	Kind OutcomeKind

	// Conflict only. ServerPayload may be nil when the server omits it.
	ServerPayload map[string]interface{}
	ServerVersion int64

	// Retryable only.
	Message string
}

// Success returns a success outcome.
func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

// Conflict returns a conflict outcome carrying the server's state.
func Conflict(serverPayload map[string]interface{}, serverVersion int64) Outcome {
	return Outcome{Kind: OutcomeConflict, ServerPayload: serverPayload, ServerVersion: serverVersion}
}

// Retryable returns a retryable failure with a human-readable message.
func Retryable(message string) Outcome {
	return Outcome{Kind: OutcomeRetryable, Message: message}
}

// Executor performs exactly one remote call for an item.
// Implementations must not mutate item.
type Executor interface {
	Execute(ctx context.Context, item queue.QueueItem) Outcome
}

// Func adapts a function to the Executor interface.
type Func func(ctx context.Context, item queue.QueueItem) Outcome

// Execute calls f.
func (f Func) Execute(ctx context.Context, item queue.QueueItem) Outcome {
	return f(ctx, item)
}
