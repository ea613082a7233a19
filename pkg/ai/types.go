package ai

import "context"

// Client describes a chat model capable of answering a grading request.
// Implementations own the transport, its timeout, and its instrumentation;
// the caller owns prompt construction and response interpretation.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
