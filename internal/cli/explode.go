package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/opline/bomcat/internal/caldate"
	"github.com/opline/bomcat/internal/catalog"
)

// ExplodeOptions holds flags for the explode command.
type ExplodeOptions struct {
	*RootOptions
	Date string
}

// NewExplodeCommand creates the explode command.
func NewExplodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explode <code>",
		Short: "Explode an item's bill of materials as of a date",
		Long: `Resolve the item by exact code, explode its bill of materials as of
the given date, and print the tree. Without --date the explosion runs
as of today.

Example:
  bomcat explode -c bomcat.yaml A-100 --date 2024-06-01
  bomcat explode -c bomcat.yaml A-100 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "as-of date, YYYY-MM-DD (default: today)")

	return cmd
}

func runExplode(opts *ExplodeOptions, code string, cmd *cobra.Command) error {
	asOfDays := caldate.ToDays(time.Now().UTC())
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

	codes, err := eng.GetCodesByCode(code)
	if err != nil {
		return WrapExitError(ExitFailure, "look up code", err)
	}
	if len(codes) == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("unknown code %q", code))
	}

	root, nodes, err := eng.GetBomByCodeID3(codes[0].ID, asOfDays)
	if err != nil {
		return WrapExitError(ExitFailure, "explode", err)
	}

	if opts.Format == "json" {
		out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return out.Success(map[string]any{"root": root, "nodes": nodes})
	}

	printBomTree(cmd.OutOrStdout(), root, nodes)
	return nil
}

// printBomTree renders the exploded tree with indentation. A revision
// already printed on the current path is marked as a cycle instead of
// being descended again.
func printBomTree(w io.Writer, root int, nodes map[int]*catalog.BomNode) {
	var walk func(rid int, qty float64, depth int, path map[int]bool)
	walk = func(rid int, qty float64, depth int, path map[int]bool) {
		n := nodes[rid]
		indent := ""
		for i := 0; i < depth; i++ {
			indent += "  "
		}
		qtyStr := ""
		if depth > 0 {
			qtyStr = fmt.Sprintf("  x%g", qty)
		}
		if path[rid] {
			fmt.Fprintf(w, "%s%s  %s%s  [cycle]\n", indent, n.Code, n.Descr, qtyStr)
			return
		}
		fmt.Fprintf(w, "%s%s  %s  iter=%d  [%s .. %s]%s\n",
			indent, n.Code, n.Descr, n.Iter,
			caldate.Format(n.DateFromDays), formatTo(n.DateToDays), qtyStr)

		path[rid] = true
		children := make([]int, 0, len(n.Deps))
		for child := range n.Deps {
			children = append(children, child)
		}
		sort.Ints(children)
		for _, child := range children {
			walk(child, n.Deps[child].Qty, depth+1, path)
		}
		delete(path, rid)
	}
	walk(root, 0, 0, make(map[int]bool))
}

func formatTo(days int) string {
	if days >= caldate.EndOfTime {
		return "forever"
	}
	return caldate.Format(days)
}
