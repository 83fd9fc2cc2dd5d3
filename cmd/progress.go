package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	progressLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6B7280")).
				Width(20)
	progressBarStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#3B82F6"))
	progressPercentStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#10B981"))
)

// progressWidth is the number of characters the filled/empty bar occupies,
// independent of the surrounding label and percentage text.
const progressWidth = 30

// Progress renders a single self-overwriting terminal line for a named,
// bounded run. It is safe to construct with an unknown total (0): it then
// renders a counter instead of a bar.
type Progress struct {
	out   io.Writer
	label string
}

// NewProgress builds a Progress that writes to out under label.
func NewProgress(out io.Writer, label string) *Progress {
	return &Progress{out: out, label: label}
}

// Update renders the current position against total. Pass total=0 when the
// bound is unknown.
func (p *Progress) Update(position, total int64) {
	label := progressLabelStyle.Render(truncateLabel(p.label, 20))

	if total <= 0 {
		fmt.Fprintf(p.out, "\r%s %s events processed", label, humanize.Comma(position))
		return
	}

	fraction := float64(position) / float64(total)
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * progressWidth)
	bar := progressBarStyle.Render(strings.Repeat("=", filled) + strings.Repeat("-", progressWidth-filled))
	percent := progressPercentStyle.Render(fmt.Sprintf("%3.0f%%", fraction*100))

	fmt.Fprintf(p.out, "\r%s [%s] %s %s/%s", label, bar, percent, humanize.Comma(position), humanize.Comma(total))
}

// Finish writes a trailing newline, ending the self-overwriting line.
func (p *Progress) Finish() {
	fmt.Fprintln(p.out)
}

func truncateLabel(label string, width int) string {
	if len(label) <= width {
		return label
	}
	return label[:width-1] + "…"
}
