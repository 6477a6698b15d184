package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"

	"github.com/arksynth/arksynth/internal/orchestrator"
)

// BarRenderer draws a two-line progress display (status + bar) on a TTY,
// or prints timestamped single lines on a non-TTY.
type BarRenderer struct {
	out       io.Writer
	start     time.Time
	isTTY     bool
	width     int
	lastEvent orchestrator.Event
	lines     int // number of lines currently written (for TTY overwrite)
}

// NewBarRenderer creates a renderer that writes to out. It auto-detects
// TTY mode and terminal width.
func NewBarRenderer(out *os.File) *BarRenderer {
	tty := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())

	width := 80
	if tty {
		if w, _, err := term.GetSize(out.Fd()); err == nil && w > 0 {
			width = w
		}
	}

	return &BarRenderer{
		out:   out,
		start: time.Now(),
		isTTY: tty,
		width: width,
	}
}

// Handle processes a progress event. It satisfies the Callback type.
func (r *BarRenderer) Handle(e orchestrator.Event) {
	r.lastEvent = e

	if r.isTTY {
		r.renderTTY(e)
	} else {
		r.renderPlain(e)
	}
}

func (r *BarRenderer) percent(e orchestrator.Event) float64 {
	if e.Total <= 0 {
		return 0
	}
	pct := float64(e.Completed) / float64(e.Total)
	if pct > 1 {
		pct = 1
	}
	return pct
}

// Finish clears the progress display and prints a final summary.
func (r *BarRenderer) Finish() {
	e := r.lastEvent
	if r.isTTY && r.lines > 0 {
		r.clearLines()
	}

	if e.Error != "" {
		fmt.Fprintf(r.out, "\n  Error: %s\n", e.Error)
		return
	}

	elapsed := elapsedOf(e)
	switch e.Status {
	case orchestrator.StatusCompleted:
		fmt.Fprintf(r.out, "\n  %s: %d/%d lines rendered (%s)\n", e.EpisodeID, e.Completed, e.Total, formatElapsed(elapsed))
	case orchestrator.StatusCancelled:
		fmt.Fprintf(r.out, "\n  %s: cancelled at %d/%d lines (%s)\n", e.EpisodeID, e.Completed, e.Total, formatElapsed(elapsed))
	case orchestrator.StatusFailed:
		fmt.Fprintf(r.out, "\n  %s: failed after %d/%d lines (%s)\n", e.EpisodeID, e.Completed, e.Total, formatElapsed(elapsed))
	}
}

func elapsedOf(e orchestrator.Event) time.Duration {
	if e.StartedAt.IsZero() {
		return 0
	}
	end := e.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(e.StartedAt)
}

func (r *BarRenderer) renderTTY(e orchestrator.Event) {
	if r.lines > 0 {
		r.clearLines()
	}

	msg := fmt.Sprintf("  %s: %s", e.EpisodeID, statusLine(e))
	pct := r.percent(e)
	bar := renderBar(pct, r.barWidth())
	pctStr := fmt.Sprintf("%3d%%", int(pct*100))
	line2 := fmt.Sprintf("  %s %s  %s", bar, pctStr, formatElapsed(elapsedOf(e)))

	fmt.Fprintf(r.out, "%s\n%s", msg, line2)
	r.lines = 2
}

func (r *BarRenderer) renderPlain(e orchestrator.Event) {
	fmt.Fprintf(r.out, "[%s] %s: %s\n", formatElapsed(elapsedOf(e)), e.EpisodeID, statusLine(e))
}

func statusLine(e orchestrator.Event) string {
	if e.CurrentText != "" {
		return fmt.Sprintf("%d/%d %q", e.Completed, e.Total, truncate(e.CurrentText, 40))
	}
	return fmt.Sprintf("%d/%d (%s)", e.Completed, e.Total, e.Status)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func (r *BarRenderer) clearLines() {
	for i := 0; i < r.lines; i++ {
		if i == 0 {
			fmt.Fprint(r.out, "\r\033[2K")
		} else {
			fmt.Fprint(r.out, "\033[A\033[2K")
		}
	}
	fmt.Fprint(r.out, "\r")
	r.lines = 0
}

// barWidth returns the width available for the bar, accounting for
// brackets, percent, elapsed, and padding.
func (r *BarRenderer) barWidth() int {
	w := r.width - 16
	if w < 20 {
		w = 20
	}
	if w > 60 {
		w = 60
	}
	return w
}

// renderBar draws a [####....] style bar of the given width.
func renderBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", empty) + "]"
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	mins := total / 60
	secs := total % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}
