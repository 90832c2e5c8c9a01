package main

import (
	"context"
	"time"

	"github.com/kakkerlakgly/adapterkit/engine/boltengine"
	"github.com/kakkerlakgly/adapterkit/internal/x/loggingx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the flags shared by every command.
type app struct {
	path    string
	timeout time.Duration
	verbose bool
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "adapterctl",
		Short: "Inspect and maintain an adapter's message store",
		Long: `adapterctl operates on the BoltDB file used by an adapter's persistent
messaging engine. It lists the messages held in each bucket and purges
buckets that have accumulated messages which are no longer needed.

The adapter that owns the database must not be running, as BoltDB allows
only a single process to open the file.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&a.path, "db", "adapterkit.db", "path to the message store")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 5*time.Second, "time to wait for the message store to be unlocked")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newBucketsCommand(a),
		newListCommand(a),
		newPurgeCommand(a),
	)

	return cmd
}

// withEngine opens the message store, calls fn, then closes the store.
func (a *app) withEngine(
	ctx context.Context,
	fn func(context.Context, *boltengine.Engine) error,
) error {
	logger, err := a.logger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	openCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	eng, err := boltengine.Open(
		openCtx,
		a.path,
		boltengine.WithLogger(loggingx.Zap(logger)),
	)
	if err != nil {
		return err
	}
	defer eng.Close()

	return fn(ctx, eng)
}

// logger returns the zap logger that receives the engine's log output.
func (a *app) logger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true

	if !a.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	return cfg.Build()
}
