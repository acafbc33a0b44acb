package timefmt

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

const clockLayout = "15:04"

// FormatDuration renders a duration as MM:SS, or HH:MM:SS once it reaches an hour.
// Sub-second remainders are dropped and negative values render as zero.
func FormatDuration(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	total := int64(value / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FormatMillis is FormatDuration for a millisecond count.
func FormatMillis(ms int64) string {
	return FormatDuration(time.Duration(ms) * time.Millisecond)
}

// FormatTime renders the hour and minute of a timestamp in the local zone.
func FormatTime(value time.Time) (formatted string) {
	defer func() {
		if recover() != nil {
			formatted = value.Format(time.Kitchen)
		}
	}()
	return value.In(time.Local).Format(clockLayout)
}

// Since renders how long ago a timestamp was, e.g. "3 minutes ago".
func Since(value time.Time) string {
	if value.IsZero() {
		return "never"
	}
	return humanize.Time(value)
}
