// Package mail ingests submissions from a mailbox: a polling loop lists
// unseen messages, stages their PDF attachments and hands them to the
// pipeline.
package mail

import "context"

// Attachment is one PDF file pulled out of a message.
type Attachment struct {
	FileName string
	Data     []byte
}

// Message is an unseen mailbox message with its PDF attachments.
type Message struct {
	ID          uint32
	From        string
	Subject     string
	Attachments []Attachment
}

// Source lists unseen messages and marks them seen. Implementations own the
// mailbox transport.
type Source interface {
	FetchUnseen(ctx context.Context) ([]Message, error)
	MarkSeen(ctx context.Context, ids []uint32) error
	Close() error
}
