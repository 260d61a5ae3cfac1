package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/lu-zhengda/flowtag/internal/report"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <old_tag_counts.csv> <new_tag_counts.csv>",
	Short: "Compare two tag count reports",
	Long: `Show tags that appeared, disappeared or changed count between two
tag reports written by "flowtag count".`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	prev, err := report.ReadTagCounts(args[0])
	if err != nil {
		return err
	}
	current, err := report.ReadTagCounts(args[1])
	if err != nil {
		return err
	}

	changes := report.Diff(prev, current)
	out := cmd.OutOrStdout()

	if jsonOutput {
		return printDiffJSON(out, changes)
	}
	if len(changes) == 0 {
		fmt.Fprintln(out, "No differences.")
		return nil
	}
	return printDiffHuman(out, changes)
}

func printDiffHuman(out io.Writer, changes []report.Change) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHANGE\tTAG\tOLD\tNEW\tDELTA")
	for _, c := range changes {
		delta := humanize.Comma(int64(c.Delta()))
		if c.Delta() > 0 {
			delta = "+" + delta
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			strings.ToUpper(string(c.Type)),
			c.Tag,
			humanize.Comma(int64(c.Old)),
			humanize.Comma(int64(c.New)),
			delta,
		)
	}
	return w.Flush()
}

func printDiffJSON(out io.Writer, changes []report.Change) error {
	if changes == nil {
		changes = []report.Change{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(changes)
}
