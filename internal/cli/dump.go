package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opline/bomcat/internal/catalog"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Output string
	Table  string
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump catalog tables as JSON",
		Long: `Dump every catalog table (or a single one) as JSON. The output of a
full dump can be fed back through "bomcat restore".

Example:
  bomcat dump -c bomcat.yaml -o backup.json
  bomcat dump -c bomcat.yaml --table items`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&opts.Table, "table", "", "dump a single table")

	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command) error {
	eng, d, _, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer d.Close()

	var payload any
	if opts.Table != "" {
		td, err := eng.DumpTable(opts.Table)
		if err != nil {
			return WrapExitError(ExitFailure, "dump table", err)
		}
		payload = td
	} else {
		dump, err := eng.DumpTables()
		if err != nil {
			return WrapExitError(ExitFailure, "dump tables", err)
		}
		payload = dump
	}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "encode dump", err)
	}
	raw = append(raw, '\n')

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, raw, 0o600); err != nil {
			return WrapExitError(ExitCommandError, "write dump", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.Output)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(raw)
	return err
}

// RestoreOptions holds flags for the restore command.
type RestoreOptions struct {
	*RootOptions
	Input string
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RestoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the catalog's contents from a dump file",
		Long: `Load a JSON dump previously produced by "bomcat dump" and replace
the catalog's contents with it in one transaction. The schema must
already exist and match the dump's shape.

Example:
  bomcat restore -c bomcat.yaml -i backup.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "dump file to restore (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runRestore(opts *RestoreOptions, cmd *cobra.Command) error {
	raw, err := os.ReadFile(opts.Input)
	if err != nil {
		return WrapExitError(ExitCommandError, "read dump", err)
	}
	var dump map[string]*catalog.TableDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return WrapExitError(ExitCommandError, "parse dump", err)
	}

	eng, d, _, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := eng.RestoreTables(dump); err != nil {
		return WrapExitError(ExitFailure, "restore tables", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(map[string]any{"tables": len(dump)})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %d tables\n", len(dump))
	return nil
}
