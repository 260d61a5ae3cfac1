package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lu-zhengda/flowtag/internal/tagger"
	"github.com/lu-zhengda/flowtag/internal/tui"
	"github.com/spf13/cobra"
)

var (
	viewLookup     string
	viewHeaderMode string
)

var viewCmd = &cobra.Command{
	Use:   "view <flow-log>",
	Short: "Browse tag and port/protocol counts interactively",
	Long: `Count a flow log and browse the results in a terminal UI.
No report files are written.`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringVarP(&viewLookup, "lookup", "l", "", "Lookup table CSV (dstport,protocol,tag)")
	viewCmd.Flags().StringVar(&viewHeaderMode, "header-mode", "", "Lookup header validation: strict or subset")
}

func runView(cmd *cobra.Command, args []string) error {
	table, err := loadLookup(viewLookup, viewHeaderMode)
	if err != nil {
		return fmt.Errorf("failed to load lookup table: %w", err)
	}

	tg, err := tagger.New(loadProtocols(), table, logger)
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(tg, args[0], version), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
