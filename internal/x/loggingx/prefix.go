package loggingx

import (
	"fmt"
	"strings"

	"github.com/dogmatiq/dodeca/logging"
)

// WithPrefix returns a logger that adds a prefix to log messages.
//
// A nil target is replaced with logging.DefaultLogger.
func WithPrefix(target logging.Logger, f string, v ...interface{}) logging.Logger {
	if target == nil {
		target = logging.DefaultLogger
	}

	p := fmt.Sprintf(f, v...)

	return &prefixed{
		target: target,
		prefix: p,
		format: strings.ReplaceAll(p, "%", "%%"),
	}
}

// WithSession returns a logger that prefixes log messages with an endpoint
// session key.
func WithSession(target logging.Logger, key string) logging.Logger {
	if key == "" {
		key = "-"
	}

	return WithPrefix(target, "[%s] ", key)
}

type prefixed struct {
	target logging.Logger
	prefix string
	format string
}

func (l *prefixed) Log(f string, v ...interface{}) {
	l.target.Log(l.format+f, v...)
}

func (l *prefixed) LogString(s string) {
	l.target.LogString(l.prefix + s)
}

func (l *prefixed) Debug(f string, v ...interface{}) {
	l.target.Debug(l.format+f, v...)
}

func (l *prefixed) DebugString(s string) {
	l.target.DebugString(l.prefix + s)
}

func (l *prefixed) IsDebug() bool {
	return l.target.IsDebug()
}
