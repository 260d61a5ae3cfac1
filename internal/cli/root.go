package cli

import (
	"fmt"
	"os"

	"github.com/lu-zhengda/flowtag/internal/config"
	"github.com/lu-zhengda/flowtag/internal/logging"
	"github.com/lu-zhengda/flowtag/internal/lookup"
	"github.com/lu-zhengda/flowtag/internal/protocol"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Set via ldflags at build time.
	version = "dev"

	// Global flags.
	jsonOutput   bool
	configPath   string
	logLevel     string
	logFormat    string
	protocolFile string

	cfg    = config.Default()
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "flowtag",
	Short: "Tag and count flow-log records by port and protocol",
	Long: `flowtag reads flow-log files, classifies every record by its
destination port and protocol using a lookup table, and writes tag and
port/protocol count reports as CSV.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if shell, _ := cmd.Flags().GetString("generate-completion"); shell != "" {
			switch shell {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", shell)
			}
		}
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("flowtag %s\n", version))
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().String("generate-completion", "", "Generate shell completion (bash, zsh, fish)")
	rootCmd.Flags().MarkHidden("generate-completion")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/flowtag/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&protocolFile, "protocols", "", "IANA protocol-numbers CSV")

	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(protocolsCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads the config file and builds the logger. Flags win over config.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if protocolFile != "" {
		cfg.ProtocolFile = protocolFile
	}

	l, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func loadProtocols() *protocol.Table {
	return protocol.Load(cfg.ProtocolFile, logger)
}

// loadLookup loads the lookup table at path, or the configured one when
// path is empty. mode overrides the configured header mode when set.
func loadLookup(path, mode string) (*lookup.Table, error) {
	if path == "" {
		path = cfg.LookupFile
	}
	if path == "" {
		return nil, fmt.Errorf("no lookup table given (use --lookup or lookup_file in config)")
	}
	if mode == "" {
		mode = cfg.HeaderMode
	}
	hm, err := lookup.ParseHeaderMode(mode)
	if err != nil {
		return nil, err
	}

	table, err := lookup.Load(path, hm)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Error("lookup table unavailable")
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"path":    path,
		"entries": table.Len(),
		"mode":    hm.String(),
	}).Debug("loaded lookup table")
	return table, nil
}
