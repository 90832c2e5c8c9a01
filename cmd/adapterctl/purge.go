package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kakkerlakgly/adapterkit/engine/boltengine"
	"github.com/spf13/cobra"
)

func newPurgeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "purge BUCKET",
		Short:     "Remove every message from a bucket",
		Args:      cobra.ExactArgs(1),
		ValidArgs: boltengine.BucketNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(ctx context.Context, eng *boltengine.Engine) error {
				n, err := eng.Purge(ctx, args[0])
				if err != nil {
					return err
				}

				fmt.Fprintf(
					cmd.OutOrStdout(),
					"purged %s message(s) from %s\n",
					color.New(color.Bold).Sprint(n),
					args[0],
				)

				return nil
			})
		},
	}
}
