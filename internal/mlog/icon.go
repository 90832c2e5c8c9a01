package mlog

import (
	"fmt"
	"io"

	"github.com/dogmatiq/iago/must"
	"github.com/kakkerlakgly/adapterkit/engine"
)

const (
	// TransactionIDIcon is the icon shown directly before a transaction ID. It
	// is a circle with a dot in the center, intended to be reminiscent of an
	// electron circling a nucleus, indicating "atomicity".
	TransactionIDIcon Icon = "⨀"

	// MessageIDIcon is the icon shown directly before a message ID.
	// It is an "equals sign", indicating that this message "has exactly" the
	// displayed ID.
	MessageIDIcon Icon = "="

	// CorrelationIDIcon is the icon shown directly before the correlation
	// token of a request message. It is the mathematical "member of set"
	// symbol, indicating that responses belong to the set of messages
	// correlated with the displayed token.
	CorrelationIDIcon Icon = "⋲"

	// SubmitIcon is the icon shown when a message is submitted to the engine.
	// It is an upward pointing arrow, as the message is "uploaded" to the
	// engine.
	SubmitIcon Icon = "▲"

	// ResponseIcon is the icon shown when a response message is submitted. It
	// is a downward pointing arrow, as the response flows back to the party
	// that sent the request.
	ResponseIcon Icon = "▼"

	// DeleteIcon is the icon shown when a message is removed from the
	// engine's queue. It is a check mark, indicating the message is done.
	DeleteIcon Icon = "✔"

	// RetryIcon is the icon shown when a message is scheduled for
	// redelivery. It is an open-circle with an arrow, indicating that the
	// message will "come around again".
	RetryIcon Icon = "↻"

	// SuspendIcon is the icon shown when a message is moved to the suspended
	// queue. It is a "pause" symbol.
	SuspendIcon Icon = "⏸"

	// NextTransportIcon is the icon shown when a message is handed to the
	// next transport. It is a rightward arrow to a bar, indicating the message
	// "moves on".
	NextTransportIcon Icon = "⇥"

	// RequestIcon is the icon shown when a request message is submitted. It
	// is a pair of opposing arrows, indicating a round trip.
	RequestIcon Icon = "⇄"

	// CancelIcon is the icon shown when a request is canceled. It is a
	// circled slash.
	CancelIcon Icon = "⊘"

	// ErrorIcon is the icon shown when logging information about an error.
	// It is a heavy cross, indicating a failure.
	ErrorIcon Icon = "✖"

	// SystemIcon is an icon shown when a log message relates to the internals
	// of the adapter. It is a sprocket, representing the inner workings of the
	// machine.
	SystemIcon Icon = "⚙"

	// SeparatorIcon is an icon used to separate strings of unrelated text
	// inside a log message. It is a large bullet, intended to have a large
	// visual impact.
	SeparatorIcon Icon = "●"
)

// Icon is a unicode symbol used as an icon in log messages.
type Icon string

func (i Icon) String() string {
	return string(i)
}

// WriteTo writes a string representation of the icon to w.
// If i is the zero-value, a single space is rendered.
func (i Icon) WriteTo(w io.Writer) (int64, error) {
	s := i.String()
	if i == "" {
		s = " "
	}

	n, err := io.WriteString(w, s)
	return int64(n), err
}

// WithLabel return an IconWithLabel containing this icon and the given label.
func (i Icon) WithLabel(f string, v ...interface{}) IconWithLabel {
	return IconWithLabel{
		i,
		formatLabel(fmt.Sprintf(f, v...)),
	}
}

// WithID return an IconWithLabel containing this icon and an ID as its label.
//
// The id is formatted using FormatID().
func (i Icon) WithID(id string) IconWithLabel {
	return i.WithLabel("%s", FormatID(id))
}

// IconWithLabel is a container for an icon and its associated text label.
type IconWithLabel struct {
	Icon  Icon
	Label string
}

func (i IconWithLabel) String() string {
	return i.Icon.String() + " " + i.Label
}

// WriteTo writes a string representation of the icon and its label to w.
func (i IconWithLabel) WriteTo(w io.Writer) (_ int64, err error) {
	defer must.Recover(&err)

	n := must.WriteTo(w, i.Icon)
	n += must.WriteString(w, " ")
	n += must.WriteString(w, i.Label)

	return int64(n), err
}

// formatLabel formats a label for display.
func formatLabel(label string) string {
	if label == "" {
		return "-"
	}

	return label
}

// KindIcon returns the icon to use for the given operation kind.
func KindIcon(k engine.Kind) Icon {
	k.MustValidate()

	switch k {
	case engine.Submit:
		return SubmitIcon
	case engine.Delete:
		return DeleteIcon
	case engine.Resubmit:
		return RetryIcon
	case engine.MoveToSuspend:
		return SuspendIcon
	case engine.MoveToNextTransport:
		return NextTransportIcon
	case engine.SubmitRequest:
		return RequestIcon
	case engine.SubmitResponse:
		return ResponseIcon
	default: // engine.CancelRequest
		return CancelIcon
	}
}
