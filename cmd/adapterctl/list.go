package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/kakkerlakgly/adapterkit/engine/boltengine"
	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	var properties bool

	cmd := &cobra.Command{
		Use:       "list BUCKET",
		Short:     "List the messages in a bucket",
		Args:      cobra.ExactArgs(1),
		ValidArgs: boltengine.BucketNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(ctx context.Context, eng *boltengine.Engine) error {
				entries, err := eng.List(ctx, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()

				if len(entries) == 0 {
					fmt.Fprintln(out, color.New(color.Faint).Sprint("(no messages)"))
					return nil
				}

				for _, e := range entries {
					writeEntry(out, e, properties)
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&properties, "properties", "p", false, "show message properties")

	return cmd
}

// writeEntry writes a one-line summary of e to w, optionally followed by the
// message's properties.
func writeEntry(w io.Writer, e boltengine.Entry, properties bool) {
	m := e.Message

	fmt.Fprint(w, color.New(color.FgCyan).Sprint(m.ID))

	if addr := m.OutboundLocation(); addr != "" {
		fmt.Fprintf(w, "  to %s", addr)
	}

	if !e.Due.IsZero() {
		fmt.Fprintf(w, "  due %s", e.Due.Format(time.RFC3339))
	}

	if n := m.FailureCount(); n > 0 {
		fmt.Fprintf(w, "  %s", color.New(color.FgYellow).Sprintf("failures=%d", n))
	}

	data, err := m.ReadAll()
	if err != nil {
		fmt.Fprintf(w, "  %s\n", color.New(color.FgRed).Sprintf("unreadable body: %s", err))
	} else {
		fmt.Fprintf(w, "  %d byte(s)\n", len(data))
	}

	if !properties {
		return
	}

	for _, k := range m.Properties.Keys() {
		v, _ := m.Properties.Get(k)
		fmt.Fprintf(w, "    %s = %v\n", k, v)
	}
}
