package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opline/bomcat/internal/caldate"
	"github.com/opline/bomcat/internal/catalog"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Code          string
	Descr         string
	CaseSensitive bool
	Date          string
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search revisions by code and description patterns",
		Long: `Search revisions by SQL LIKE patterns on code and description,
optionally restricted to those valid at a date.

Example:
  bomcat search -c bomcat.yaml --code 'A-%'
  bomcat search -c bomcat.yaml --descr '%bracket%' --date 2024-06-01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Code, "code", "", "code pattern")
	cmd.Flags().StringVar(&opts.Descr, "descr", "", "description pattern")
	cmd.Flags().BoolVar(&opts.CaseSensitive, "case-sensitive", false, "match case-sensitively")
	cmd.Flags().StringVar(&opts.Date, "date", "", "only revisions valid at this date, YYYY-MM-DD")

	return cmd
}

func runSearch(opts *SearchOptions, cmd *cobra.Command) error {
	asOfDays := -1
	if opts.Date != "" {
		d, err := caldate.ParseDays(opts.Date)
		if err != nil {
			return WrapExitError(ExitCommandError, "parse date", err)
		}
		asOfDays = d
	}

	eng, d, _, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer d.Close()

	revs, err := eng.SearchRevisions(catalog.SearchOptions{
		Code:          opts.Code,
		Descr:         opts.Descr,
		CaseSensitive: opts.CaseSensitive,
		AsOfDays:      asOfDays,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "search", err)
	}

	if opts.Format == "json" {
		out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return out.Success(revs)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RID\tCODE\tDESCR\tVER\tITER\tFROM\tTO")
	for _, r := range revs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Code, r.Descr, r.Ver, r.Iter,
			caldate.Format(r.DateFromDays), formatTo(r.DateToDays))
	}
	return tw.Flush()
}
