package fixtures

import (
	"fmt"
	"time"

	"github.com/kakkerlakgly/adapterkit/message"
)

// NewMessage returns a message with a deterministic ID and body derived from
// name.
func NewMessage(name string) *message.Message {
	m := message.NewBytes([]byte(fmt.Sprintf("<%s>", name)))
	m.ID = fmt.Sprintf("<%s-id>", name)
	return m
}

// NewOutboundMessage returns a message addressed to addr that may be
// redelivered retries times, at the given interval.
func NewOutboundMessage(name, addr string, retries int, interval time.Duration) *message.Message {
	m := NewMessage(name)
	m.SetOutboundLocation(addr)
	m.SetRetryCount(retries)
	m.SetRetryInterval(interval)
	return m
}
