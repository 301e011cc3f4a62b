package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is the dev/test queueClient, a buffered channel with SQS-ish
// receive semantics (bounded batch, bounded wait).
type MemoryQueue struct {
	inbox chan queueMessage
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{inbox: make(chan queueMessage, buffer)}
}

var _ queueClient = (*MemoryQueue)(nil)

func (q *MemoryQueue) Send(ctx context.Context, body string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case q.inbox <- queueMessage{ID: uuid.NewString(), Body: body, ReceiptHandle: uuid.NewString()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var expired <-chan time.Time
	if waitSeconds > 0 {
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, nil
	case first := <-q.inbox:
		return q.drainInto([]queueMessage{first}, maxMessages), nil
	}
}

// Delete is a no-op: reading from the channel already consumed the message.
func (q *MemoryQueue) Delete(context.Context, string) error { return nil }

// drainInto greedily fills the batch with whatever is already buffered,
// without waiting for more.
func (q *MemoryQueue) drainInto(batch []queueMessage, max int) []queueMessage {
	for len(batch) < max {
		select {
		case msg := <-q.inbox:
			batch = append(batch, msg)
		default:
			return batch
		}
	}
	return batch
}
