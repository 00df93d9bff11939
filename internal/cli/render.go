package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runnerr0/awcal/internal/activity"
)

// Gruvbox-inspired palette shared by the human-readable outputs.
var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorYellow = lipgloss.Color("#fabd2f")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")

	styleGreen  = lipgloss.NewStyle().Foreground(colorGreen)
	styleYellow = lipgloss.NewStyle().Foreground(colorYellow)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
)

// renderHeader renders an upper-cased section header with an underline.
func renderHeader(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", styleHeader.Render(upper), styleDim.Render(line))
}

// renderTable renders an aligned table with a header separator line.
// Widths are measured on visible text so styled cells line up.
func renderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	cols := len(headers)
	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	const colGap = 2
	var b strings.Builder

	writeRow := func(cells []string, style func(string) string) {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - lipgloss.Width(cell)
			if pad < 0 {
				pad = 0
			}
			b.WriteString(style(cell))
			if i < cols-1 {
				b.WriteString(strings.Repeat(" ", pad+colGap))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers, func(s string) string { return styleHeader.Render(s) })
	for i, w := range widths {
		b.WriteString(styleDim.Render(strings.Repeat("─", w)))
		if i < cols-1 {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row, func(s string) string { return s })
	}

	return b.String()
}

// summaryRows flattens an hour summary into table rows: one row per item,
// followed by up to maxTitles indented title rows.
func summaryRows(items []activity.SummaryItem, maxTitles int) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		name := it.Name
		switch {
		case it.Name == activity.AFKName:
			name = styleDim.Render(name)
		case len(it.Titles) == 0:
			name = styleYellow.Render(name)
		default:
			name = styleGreen.Render(name)
		}
		rows = append(rows, []string{name, formatClock(it.TotalDuration), fmt.Sprintf("%5.1f%%", it.Percentage)})

		if it.Name == activity.AFKName {
			continue
		}
		for i, ts := range it.Titles {
			if maxTitles >= 0 && i >= maxTitles {
				rows = append(rows, []string{styleDim.Render(fmt.Sprintf("  … %d more", len(it.Titles)-i)), "", ""})
				break
			}
			rows = append(rows, []string{"  " + truncate(ts.Title, 60), styleDim.Render(formatClock(ts.Duration)), ""})
		}
	}
	return rows
}

// truncate shortens s to at most n visible runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// eventLabel is the one-line description of an event used in listings.
func eventLabel(e activity.Event) string {
	switch e.Kind {
	case activity.KindAFK:
		return e.Status
	case activity.KindTask:
		return e.Label
	case activity.KindAggregated:
		if e.Aggregate != nil {
			return fmt.Sprintf("%s (%d events)", activity.AggregatedTitle, e.Aggregate.EventCount)
		}
		return activity.AggregatedTitle
	default:
		title := e.Title
		if title == "" {
			title = activity.NoTitle
		}
		return e.App + " · " + title
	}
}
