package queue

import "context"

// Job handles one message type.
type Job interface {
	Name() string
	// Type is the message type the job consumes.
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}
