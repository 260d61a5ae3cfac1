package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/lu-zhengda/flowtag/internal/lookup"
	"github.com/spf13/cobra"
)

var (
	lookupHeaderMode string
	lookupResolve    []string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [table.csv]",
	Short: "Validate and show a lookup table",
	Long: `Load a lookup table and print its entries. The file must be a .csv
with a header drawn from dstport, protocol and tag.

Use --resolve PORT/PROTO (e.g. 443/tcp) to show the tag a flow would get.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupHeaderMode, "header-mode", "", "Header validation: strict or subset")
	lookupCmd.Flags().StringSliceVar(&lookupResolve, "resolve", nil, "Resolve PORT/PROTO pairs against the table")
}

func runLookup(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	table, err := loadLookup(path, lookupHeaderMode)
	if err != nil {
		return fmt.Errorf("failed to load lookup table: %w", err)
	}

	out := cmd.OutOrStdout()

	if len(lookupResolve) > 0 {
		entries := make([]lookup.Entry, 0, len(lookupResolve))
		for _, pair := range lookupResolve {
			port, proto, err := splitPortProto(pair)
			if err != nil {
				return err
			}
			entries = append(entries, lookup.Entry{DstPort: port, Protocol: proto, Tag: table.Resolve(port, proto)})
		}
		if jsonOutput {
			return printLookupJSON(out, entries)
		}
		return printLookupTable(out, entries)
	}

	if jsonOutput {
		return printLookupJSON(out, table.Entries())
	}
	if table.Len() == 0 {
		fmt.Fprintln(out, "Lookup table has no entries.")
		return nil
	}
	return printLookupTable(out, table.Entries())
}

func splitPortProto(s string) (string, string, error) {
	port, proto, ok := strings.Cut(s, "/")
	if !ok || port == "" || proto == "" {
		return "", "", fmt.Errorf("invalid port/protocol pair: %q (want e.g. 443/tcp)", s)
	}
	return port, strings.ToLower(proto), nil
}

func printLookupTable(out io.Writer, entries []lookup.Entry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DSTPORT\tPROTOCOL\tTAG")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.DstPort, e.Protocol, e.Tag)
	}
	return w.Flush()
}

func printLookupJSON(out io.Writer, entries []lookup.Entry) error {
	type jsonEntry struct {
		DstPort  string `json:"dstport"`
		Protocol string `json:"protocol"`
		Tag      string `json:"tag"`
	}

	rows := make([]jsonEntry, len(entries))
	for i, e := range entries {
		rows[i] = jsonEntry{DstPort: e.DstPort, Protocol: e.Protocol, Tag: e.Tag}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
