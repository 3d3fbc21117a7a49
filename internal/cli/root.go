// Package cli implements the bomcat command line: schema management,
// table dump/restore, BOM explosion, and the gateway server.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opline/bomcat/internal/backend"
	"github.com/opline/bomcat/internal/catalog"
	"github.com/opline/bomcat/internal/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bomcat CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bomcat",
		Short: "bomcat - temporal bill-of-materials catalog",
		Long: `bomcat manages a temporal bill-of-materials catalog: items with
dated revision histories, assembly links between them, and the closure
queries that explode or collapse the graph as of a date.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to configuration file")

	cmd.AddCommand(NewInitDBCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewExplodeCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openEngine loads the configuration and opens a catalog engine over the
// configured backend. The caller owns the returned driver.
func openEngine(opts *RootOptions) (*catalog.Engine, backend.Driver, config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, config.Config{}, WrapExitError(ExitCommandError, "load configuration", err)
	}
	d, err := backend.Open(cfg.Database)
	if err != nil {
		return nil, nil, config.Config{}, WrapExitError(ExitCommandError, "open backend", err)
	}
	eng, err := catalog.NewEngine(d)
	if err != nil {
		d.Close()
		return nil, nil, config.Config{}, WrapExitError(ExitCommandError, "open catalog", err)
	}
	return eng, d, cfg, nil
}
