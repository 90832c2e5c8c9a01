package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kakkerlakgly/adapterkit/engine/boltengine"
	"github.com/spf13/cobra"
)

func newBucketsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "Show the number of messages in each bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(ctx context.Context, eng *boltengine.Engine) error {
				counts, err := eng.Counts(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()

				for _, n := range boltengine.BucketNames {
					c := counts[n]

					count := color.New(color.FgGreen).Sprint(c)
					if c > 0 && attention(n) {
						count = color.New(color.FgYellow).Sprint(c)
					}

					fmt.Fprintf(out, "%-16s %s\n", n, count)
				}

				return nil
			})
		},
	}
}

// attention returns true if messages in the named bucket need an operator's
// attention.
func attention(bucket string) bool {
	return bucket == boltengine.SuspendedBucket ||
		bucket == boltengine.NextTransportBucket
}
