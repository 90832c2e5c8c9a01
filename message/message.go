package message

import (
	"bytes"
	"errors"
	"io"

	"github.com/google/uuid"
)

var (
	// ErrNoBody is returned when a message that must carry a body has none.
	ErrNoBody = errors.New("message has no body")

	// ErrBodyNotSeekable is returned when a message body can not be re-read
	// from the start.
	ErrBodyNotSeekable = errors.New("message body is not seekable")
)

// Message is a unit of payload exchanged with the engine.
//
// The body must be re-seekable for any operation that may need to replay it
// into a follow-up batch, such as a submission.
type Message struct {
	// ID uniquely identifies the message.
	ID string

	// Properties is the message's context property bag.
	Properties Properties

	// ErrorInfo is the error most recently associated with the message, if
	// any. It is set when processing the message fails.
	ErrorInfo error

	body io.Reader
}

// New returns a new message with a randomly generated ID and the given body.
func New(body io.Reader) *Message {
	return &Message{
		ID:   uuid.NewString(),
		body: body,
	}
}

// NewBytes returns a new message with a seekable body containing data.
func NewBytes(data []byte) *Message {
	return New(bytes.NewReader(data))
}

// Body returns the message body.
func (m *Message) Body() io.Reader {
	return m.body
}

// SetBody replaces the message body.
func (m *Message) SetBody(r io.Reader) {
	m.body = r
}

// CheckSeekable returns an error if the message body can not be replayed.
func (m *Message) CheckSeekable() error {
	if m.body == nil {
		return ErrNoBody
	}

	if _, ok := m.body.(io.Seeker); !ok {
		return ErrBodyNotSeekable
	}

	return nil
}

// Rewind seeks the message body back to its start so that it can be read
// again.
func (m *Message) Rewind() error {
	if err := m.CheckSeekable(); err != nil {
		return err
	}

	_, err := m.body.(io.Seeker).Seek(0, io.SeekStart)
	return err
}

// ReadAll rewinds the body and reads it in full, then rewinds it again.
func (m *Message) ReadAll() ([]byte, error) {
	if err := m.Rewind(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(m.body)
	if err != nil {
		return nil, err
	}

	return data, m.Rewind()
}

// Close closes the message body, if it is closable.
func (m *Message) Close() error {
	if c, ok := m.body.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
