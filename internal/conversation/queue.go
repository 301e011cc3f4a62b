package conversation

import "context"

// queueClient is the minimal surface the dispatcher needs from a message
// queue. Receive blocks up to waitSeconds; an empty batch is not an error.
type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// queuePayload is the wire form of an enqueued turn. Kind exists so future
// job types (reminders, follow-up nudges) can share the queue.
type queuePayload struct {
	ID      string         `json:"id"`
	Kind    jobType        `json:"kind"`
	Message MessageRequest `json:"message,omitempty"`
}

type jobType string

const jobTypeMessage jobType = "message"
