package mlog

import (
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/message"
)

// LogOperation logs a debug message indicating that an operation of kind k
// has been staged for m.
func LogOperation(
	log logging.Logger,
	k engine.Kind,
	m *message.Message,
	text ...string,
) {
	if !logging.IsDebug(log) {
		return
	}

	logging.DebugString(
		log,
		String(
			messageIDs(m),
			[]Icon{
				KindIcon(k),
				"",
			},
			append([]string{k.String()}, text...)...,
		),
	)
}

// LogFailure logs a message indicating that the engine reported a failure
// for an operation of kind k.
func LogFailure(
	log logging.Logger,
	k engine.Kind,
	m *message.Message,
	s engine.Status,
	text ...string,
) {
	logging.LogString(
		log,
		String(
			messageIDs(m),
			[]Icon{
				KindIcon(k),
				ErrorIcon,
			},
			append(
				[]string{
					k.String(),
					fmt.Sprintf("engine reported %s", s),
				},
				text...,
			)...,
		),
	)
}

// LogSuspendFailure logs a message indicating that a message could not be
// moved to the suspended queue. There is no further fallback so the message is
// considered lost.
func LogSuspendFailure(
	log logging.Logger,
	m *message.Message,
	s engine.Status,
) {
	logging.LogString(
		log,
		String(
			messageIDs(m),
			[]Icon{
				SuspendIcon,
				ErrorIcon,
			},
			"unable to suspend message",
			fmt.Sprintf("engine reported %s", s),
			"message has been lost",
		),
	)
}

// LogProcessingError logs a message indicating that an endpoint failed to
// process m. next describes what happens to the message as a result.
func LogProcessingError(
	log logging.Logger,
	m *message.Message,
	cause error,
	next string,
) {
	logging.LogString(
		log,
		String(
			messageIDs(m),
			[]Icon{
				SubmitIcon,
				ErrorIcon,
			},
			cause.Error(),
			next,
		),
	)
}

// LogResolution logs a debug message indicating that a transaction has been
// resolved.
func LogResolution(
	log logging.Logger,
	txID string,
	committed bool,
	err error,
) {
	if !logging.IsDebug(log) {
		return
	}

	text := "transaction committed"
	if !committed {
		text = "transaction aborted"
	}

	var errText string
	if err != nil {
		errText = err.Error()
	}

	logging.DebugString(
		log,
		String(
			[]IconWithLabel{
				TransactionIDIcon.WithID(txID),
			},
			[]Icon{
				SystemIcon,
				errorIcon(err),
			},
			text,
			errText,
		),
	)
}

func messageIDs(m *message.Message) []IconWithLabel {
	if m == nil {
		return []IconWithLabel{
			MessageIDIcon.WithLabel(""),
		}
	}

	return []IconWithLabel{
		MessageIDIcon.WithID(m.ID),
	}
}

func errorIcon(err error) Icon {
	if err == nil {
		return ""
	}

	return ErrorIcon
}
