package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"feedfloat/internal/core/model"
	"feedfloat/internal/core/timefmt"
	"feedfloat/internal/storage"
	"feedfloat/internal/storage/journal"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyLimit int

var (
	historyTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	historyBreastStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	historyBottleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	historyDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent feeds",
	Long: `Print the most recent completed feeds from the journal, newest first.

Examples:
  feedfloat history
  feedfloat history --limit 5`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of feeds to display")
}

func runHistory(cmd *cobra.Command, args []string) error {
	feeds, err := journal.Open(storage.JournalPath(dataDir))
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() {
		_ = feeds.Close()
	}()

	entries, err := feeds.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	renderHistory(cmd.OutOrStdout(), entries, time.Now())
	return nil
}

func renderHistory(out io.Writer, entries []model.SessionDraft, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No feeds recorded yet. Start one from the FeedFloat window.")
		return
	}

	fmt.Fprintln(out, historyTitleStyle.Render(fmt.Sprintf("%d recent feeds", len(entries))))
	var bottleTotal float64
	for _, entry := range entries {
		style := historyBreastStyle
		if entry.Mode == model.ModeBottle {
			style = historyBottleStyle
			if entry.VolumeMl != nil {
				bottleTotal += *entry.VolumeMl
			}
		}
		when := "unknown start"
		if !entry.Start.IsZero() {
			when = humanize.RelTime(entry.Start, now, "ago", "from now")
		}
		fmt.Fprintf(out, "  %s  %s  %s\n",
			style.Render(entry.Label),
			timefmt.FormatDuration(entry.Duration),
			historyDimStyle.Render(when),
		)
	}
	if bottleTotal > 0 {
		fmt.Fprintln(out, historyDimStyle.Render("bottle total: "+strconv.FormatFloat(bottleTotal, 'f', -1, 64)+" ml"))
	}
}
