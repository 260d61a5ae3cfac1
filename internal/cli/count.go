package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/lu-zhengda/flowtag/internal/flowlog"
	"github.com/lu-zhengda/flowtag/internal/lookup"
	"github.com/lu-zhengda/flowtag/internal/report"
	"github.com/lu-zhengda/flowtag/internal/tagger"
	"github.com/spf13/cobra"
)

var (
	countLookup     string
	countOutDir     string
	countName       string
	countHeaderMode string
	countReload     string
)

var countCmd = &cobra.Command{
	Use:   "count <flow-log>",
	Short: "Count flow-log records per tag and per port/protocol",
	Long: `Classify every record of a flow log with the lookup table and write
two reports into the output directory:

  <name>_tag_counts.csv            Tag,Count
  <name>_port_protocol_counts.csv  Port,Protocol,Count

The name defaults to the flow-log file name without its .txt suffix.
With --reload, the log is counted again after swapping in a second lookup
table and the extra reports get a _reloaded suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: runCount,
}

func init() {
	countCmd.Flags().StringVarP(&countLookup, "lookup", "l", "", "Lookup table CSV (dstport,protocol,tag)")
	countCmd.Flags().StringVarP(&countOutDir, "out-dir", "o", "", "Report directory (default from config, \"counts\")")
	countCmd.Flags().StringVar(&countName, "name", "", "Report base name (default: flow-log file name)")
	countCmd.Flags().StringVar(&countHeaderMode, "header-mode", "", "Lookup header validation: strict or subset")
	countCmd.Flags().StringVar(&countReload, "reload", "", "Second lookup table to count against after the first run")
}

type countResult struct {
	FlowLog string       `json:"flow_log"`
	Lookup  string       `json:"lookup"`
	Lines   int          `json:"lines"`
	Records int          `json:"records"`
	Skipped int          `json:"skipped"`
	Reports report.Paths `json:"reports"`
	Tags    []tagRow     `json:"tags"`
	Combos  []comboRow   `json:"port_protocol"`
}

type tagRow struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type comboRow struct {
	Port     string `json:"port"`
	Protocol string `json:"protocol"`
	Count    int    `json:"count"`
}

func runCount(cmd *cobra.Command, args []string) error {
	flowLog := args[0]

	table, err := loadLookup(countLookup, countHeaderMode)
	if err != nil {
		return fmt.Errorf("failed to load lookup table: %w", err)
	}

	tg, err := tagger.New(loadProtocols(), table, logger)
	if err != nil {
		return err
	}

	outDir := countOutDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	name := countName
	if name == "" {
		name = report.BaseName(flowLog)
	}

	results := make([]countResult, 0, 2)

	res, err := countOnce(tg, flowLog, outDir, name)
	if err != nil {
		return err
	}
	results = append(results, res)

	if countReload != "" {
		mode := countHeaderMode
		if mode == "" {
			mode = cfg.HeaderMode
		}
		hm, err := lookup.ParseHeaderMode(mode)
		if err != nil {
			return err
		}
		if err := tg.ReloadLookup(countReload, hm); err != nil {
			return err
		}
		res, err := countOnce(tg, flowLog, outDir, name+"_reloaded")
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printCountJSON(out, results)
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := printCountHuman(out, r); err != nil {
			return err
		}
	}
	return nil
}

func countOnce(tg *tagger.Tagger, flowLog, outDir, name string) (countResult, error) {
	counts, paths, err := tg.CountAndReport(flowLog, outDir, name)
	if err != nil {
		return countResult{}, err
	}
	return newCountResult(flowLog, tg.Lookup().Path(), counts, paths), nil
}

func newCountResult(flowLog, lookupPath string, counts *flowlog.Counts, paths report.Paths) countResult {
	res := countResult{
		FlowLog: flowLog,
		Lookup:  lookupPath,
		Lines:   counts.Lines,
		Records: counts.Records(),
		Skipped: counts.Skipped,
		Reports: paths,
		Tags:    make([]tagRow, 0, counts.Tags.Len()),
		Combos:  make([]comboRow, 0, counts.Combos.Len()),
	}
	for _, tag := range counts.Tags.Keys() {
		res.Tags = append(res.Tags, tagRow{Tag: tag, Count: counts.Tags.Get(tag)})
	}
	for _, k := range counts.Combos.Keys() {
		res.Combos = append(res.Combos, comboRow{Port: k.Port, Protocol: k.Protocol, Count: counts.Combos.Get(k)})
	}
	return res
}

func printCountHuman(out io.Writer, r countResult) error {
	fmt.Fprintf(out, "Flow log:  %s\n", r.FlowLog)
	fmt.Fprintf(out, "Lookup:    %s\n", r.Lookup)
	fmt.Fprintf(out, "Records:   %s (%s skipped)\n",
		humanize.Comma(int64(r.Records)), humanize.Comma(int64(r.Skipped)))
	fmt.Fprintf(out, "Reports:   %s\n", r.Reports.Tags)
	fmt.Fprintf(out, "           %s\n\n", r.Reports.Combos)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TAG\tCOUNT")
	for _, t := range r.Tags {
		fmt.Fprintf(w, "%s\t%s\n", t.Tag, humanize.Comma(int64(t.Count)))
	}
	return w.Flush()
}

func printCountJSON(out io.Writer, results []countResult) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}
