package cli

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opline/bomcat/internal/gateway"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over the remote gateway protocol",
		Long: `Open the configured backend and serve the gateway protocol on the
configured listen address, one goroutine per connection. Credentials
come from the configuration file's users section; a connection may call
nothing until it logs in.

Example:
  bomcat serve -c bomcat.yaml
  bomcat serve -c bomcat.yaml --listen 0.0.0.0:8309`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides configuration)")

	return cmd
}

func runServe(opts *ServeOptions) error {
	eng, d, cfg, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer d.Close()

	addr := cfg.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}
	if len(cfg.Users) == 0 {
		return NewExitError(ExitCommandError, "no gateway users configured; every call would be rejected")
	}

	log, err := newLogger(cfg.LogLevel, opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "configure logging", err)
	}
	defer log.Sync()

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "listen", err)
	}
	log.Info("gateway listening",
		zap.String("addr", l.Addr().String()),
		zap.String("backend", string(cfg.Database.Kind)))

	srv := gateway.NewServer(eng, cfg.Users, log)
	if err := srv.Serve(l); err != nil {
		return WrapExitError(ExitCommandError, "serve", err)
	}
	return nil
}

// newLogger builds the production zap logger at the configured level.
// Verbose forces debug.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
