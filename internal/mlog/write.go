package mlog

import (
	"strings"

	"github.com/dogmatiq/iago/must"
)

// String returns a log line made up of the labelled IDs, then the icons, then
// each non-empty text fragment.
//
// Text fragments are separated by SeparatorIcon.
func String(
	ids []IconWithLabel,
	icons []Icon,
	text ...string,
) string {
	var w strings.Builder

	for _, id := range ids {
		must.WriteTo(&w, id)
		must.WriteString(&w, "  ")
	}

	for _, i := range icons {
		must.WriteTo(&w, i)
		must.WriteString(&w, " ")
	}

	first := true
	for _, t := range text {
		if t == "" {
			continue
		}

		if !first {
			must.WriteString(&w, " ")
			must.WriteTo(&w, SeparatorIcon)
		}

		must.WriteString(&w, " ")
		must.WriteString(&w, t)
		first = false
	}

	return w.String()
}

// FormatID formats a message or transaction ID for logging.
//
// Message IDs are UUIDs by default, only their first 8 characters are shown.
// IDs assigned by an application are displayed in-full.
func FormatID(id string) string {
	if len(id) == 36 && id[8] == '-' {
		return id[:8]
	}

	return id
}
