package cli

import (
	"fmt"
	"os"

	"feedfloat/internal/logger"
	"feedfloat/internal/platform"

	"github.com/spf13/cobra"
)

const (
	appName = "FeedFloat"
	appID   = "com.feedfloat.app"
)

var (
	dataDir     string
	logLevel    string
	versionInfo = "dev"
)

// SetVersion sets the version information from build-time ldflags.
func SetVersion(version, commit string) {
	versionInfo = fmt.Sprintf("%s (commit: %s)", version, commit)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "feedfloat",
	Short: "Floating infant feeding timer",
	Long: `feedfloat - time breastfeeding and bottle sessions in a small floating window

Running without a subcommand opens the desktop app. Completed feeds are kept
in a local journal that the history command can print.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if dataDir == "" {
			resolved, err := platform.DataDir(appName)
			if err != nil {
				return err
			}
			dataDir = resolved
		}
		logger.Init(logger.Config{
			Level:   logLevel,
			DataDir: dataDir,
			ToFile:  cmd == cmd.Root(),
		})
		return nil
	},
	RunE: runGUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for the feed journal, learned bottle volumes and logs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
