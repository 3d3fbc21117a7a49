package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitDBOptions holds flags for the initdb command.
type InitDBOptions struct {
	*RootOptions
	GValsCount  int
	GAValsCount int
	Seed        bool
}

// NewInitDBCommand creates the initdb command.
func NewInitDBCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitDBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Create a fresh catalog schema",
		Long: `Drop any existing catalog schema on the configured backend and
create a fresh one. The generic-attribute slot counts are fixed at
creation time and persisted in the database metadata.

Example:
  bomcat initdb -c bomcat.yaml --gvals 8 --gavals 8 --seed`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitDB(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.GValsCount, "gvals", 0, "revision generic-attribute slots (0 = default)")
	cmd.Flags().IntVar(&opts.GAValsCount, "gavals", 0, "link generic-attribute slots (0 = default)")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "also create the first item")

	return cmd
}

func runInitDB(opts *InitDBOptions, cmd *cobra.Command) error {
	eng, d, _, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer d.Close()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if err := eng.CreateDB(opts.GValsCount, opts.GAValsCount); err != nil {
		return WrapExitError(ExitCommandError, "create schema", err)
	}

	result := map[string]any{
		"gvals_count":  eng.GValsCount(),
		"gavals_count": eng.GAValsCount(),
	}
	if opts.Seed {
		codeID, rid, err := eng.CreateFirstCode()
		if err != nil {
			return WrapExitError(ExitCommandError, "seed first item", err)
		}
		result["code_id"] = codeID
		result["rid"] = rid
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema created (gvals=%d, gavals=%d)\n",
		eng.GValsCount(), eng.GAValsCount())
	if opts.Seed {
		fmt.Fprintf(cmd.OutOrStdout(), "seeded first item (code_id=%v, rid=%v)\n",
			result["code_id"], result["rid"])
	}
	return nil
}
