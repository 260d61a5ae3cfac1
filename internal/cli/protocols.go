package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/lu-zhengda/flowtag/internal/protocol"
	"github.com/spf13/cobra"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols [number...]",
	Short: "Resolve protocol numbers to keywords",
	Long: `Resolve IANA protocol numbers, as found in flow logs, to the keywords
used in lookup tables and reports. Without arguments the whole table is
listed. If the reference CSV cannot be read, only tcp, udp and icmp are known.`,
	RunE: runProtocols,
}

func runProtocols(cmd *cobra.Command, args []string) error {
	table := loadProtocols()

	entries := table.Entries()
	if len(args) > 0 {
		entries = make([]protocol.Entry, len(args))
		for i, n := range args {
			entries[i] = protocol.Entry{Number: n, Keyword: table.Resolve(n)}
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printProtocolsJSON(out, table.Source(), entries)
	}
	return printProtocolsTable(out, table.Source(), entries)
}

func printProtocolsTable(out io.Writer, source string, entries []protocol.Entry) error {
	fmt.Fprintf(out, "Source: %s\n\n", source)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tKEYWORD")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Number, e.Keyword)
	}
	return w.Flush()
}

func printProtocolsJSON(out io.Writer, source string, entries []protocol.Entry) error {
	type jsonEntry struct {
		Number  string `json:"number"`
		Keyword string `json:"keyword"`
	}
	type protocolsOutput struct {
		Source    string      `json:"source"`
		Protocols []jsonEntry `json:"protocols"`
	}

	o := protocolsOutput{Source: source, Protocols: make([]jsonEntry, len(entries))}
	for i, e := range entries {
		o.Protocols[i] = jsonEntry{Number: e.Number, Keyword: e.Keyword}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}
