package message

import "time"

// Names of the well-known context properties.
const (
	// RetryCountProperty is the number of redelivery attempts that remain for
	// an outbound message.
	RetryCountProperty = "RetryCount"

	// RetryIntervalProperty is the delay before an outbound message is
	// redelivered after a failure.
	RetryIntervalProperty = "RetryInterval"

	// FailureCountProperty is the number of times delivery of an outbound
	// message has failed.
	FailureCountProperty = "FailureCount"

	// OutboundLocationProperty is the address of the destination of an
	// outbound message.
	OutboundLocationProperty = "OutboundTransportLocation"

	// InboundLocationProperty is the address an inbound message was received
	// from.
	InboundLocationProperty = "InboundTransportLocation"

	// ReceivedFileNameProperty is the name of the remote file an inbound
	// message was read from.
	ReceivedFileNameProperty = "ReceivedFileName"
)

// RetryCount returns the number of redelivery attempts that remain for m.
func (m *Message) RetryCount() int {
	return m.intProperty(RetryCountProperty)
}

// SetRetryCount sets the number of redelivery attempts that remain for m.
func (m *Message) SetRetryCount(n int) {
	m.Properties.Set(RetryCountProperty, n)
}

// RetryInterval returns the delay before m is redelivered after a failure.
func (m *Message) RetryInterval() time.Duration {
	v, _ := m.Properties.Get(RetryIntervalProperty)
	if d, ok := v.(time.Duration); ok {
		return d
	}
	return time.Duration(m.intProperty(RetryIntervalProperty))
}

// SetRetryInterval sets the delay before m is redelivered after a failure.
func (m *Message) SetRetryInterval(d time.Duration) {
	m.Properties.Set(RetryIntervalProperty, d)
}

// FailureCount returns the number of times delivery of m has failed.
func (m *Message) FailureCount() int {
	return m.intProperty(FailureCountProperty)
}

// SetFailureCount sets the number of times delivery of m has failed.
func (m *Message) SetFailureCount(n int) {
	m.Properties.Set(FailureCountProperty, n)
}

// OutboundLocation returns the address of m's destination.
func (m *Message) OutboundLocation() string {
	return m.stringProperty(OutboundLocationProperty)
}

// SetOutboundLocation sets the address of m's destination.
func (m *Message) SetOutboundLocation(addr string) {
	m.Properties.Set(OutboundLocationProperty, addr)
}

// InboundLocation returns the address m was received from.
func (m *Message) InboundLocation() string {
	return m.stringProperty(InboundLocationProperty)
}

// SetInboundLocation sets the address m was received from.
func (m *Message) SetInboundLocation(addr string) {
	m.Properties.Set(InboundLocationProperty, addr)
}

// ReceivedFileName returns the name of the remote file m was read from.
func (m *Message) ReceivedFileName() string {
	return m.stringProperty(ReceivedFileNameProperty)
}

// SetReceivedFileName sets the name of the remote file m was read from.
func (m *Message) SetReceivedFileName(n string) {
	m.Properties.Set(ReceivedFileNameProperty, n)
}

func (m *Message) stringProperty(name string) string {
	v, _ := m.Properties.Get(name)
	s, _ := v.(string)
	return s
}

// intProperty returns the value of an integer property. Properties that have
// been decoded from storage may hold any integer type.
func (m *Message) intProperty(name string) int {
	v, _ := m.Properties.Get(name)

	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	default:
		return 0
	}
}
