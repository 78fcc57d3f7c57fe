package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/morsekob/kob/internal/model"
	"github.com/morsekob/kob/internal/store"
)

const terminalWidthBackup = 100

// Report contains the data behind one recordings listing.
type Report struct {
	Recordings []model.Recording
}

// BuildReport loads the recordings matching the filter.
func BuildReport(ctx context.Context, st *store.Store, filter model.RecordingsFilter) (Report, error) {
	recordings, err := st.ListRecordings(ctx, filter)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list recordings: %w", err)
	}
	return Report{Recordings: recordings}, nil
}

// Render writes the recordings table to w, sized to the terminal when w is
// one.
func Render(w io.Writer, rep Report) error {
	if len(rep.Recordings) == 0 {
		_, err := fmt.Fprintln(w, "No recordings.")
		return err
	}

	width := terminalWidthBackup
	if isTerminal(w) {
		width = terminalWidth()
	}

	headers := []string{"STARTED", "WIRE", "DURATION", "EVENTS", "STATIONS", "FILE"}
	rows := make([][]string, 0, len(rep.Recordings))
	for _, rec := range rep.Recordings {
		rows = append(rows, []string{
			rec.StartedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(rec.Wire),
			formatDuration(rec.Duration()),
			strconv.Itoa(rec.Events),
			strings.Join(rec.Stations, "; "),
			rec.Path,
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if len(line) > width {
			line = line[:width]
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// formatDuration renders a span compactly, seconds under a minute and
// h/m/s above.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
