package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dukerupert/taskhouse/internal/model"
)

const maxBarWidth = 30

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	weekStyle   = lipgloss.NewStyle().Width(10)
	dateStyle   = lipgloss.NewStyle().Width(12)
	countStyle  = lipgloss.NewStyle().Width(7).Align(lipgloss.Right).PaddingRight(1)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
)

// RenderWeekly draws one row per ISO week, oldest first, with a bar scaled
// to the busiest week.
func RenderWeekly(username string, loc *time.Location, counts []model.WeekCount) string {
	if loc == nil {
		loc = time.UTC
	}

	peak, total := 0, 0
	for _, c := range counts {
		peak = max(peak, c.Count)
		total += c.Count
	}

	rows := []string{
		titleStyle.Render(fmt.Sprintf("Completed tasks for %s (%s)", username, loc)),
		lipgloss.JoinHorizontal(lipgloss.Top,
			headerStyle.Render(weekStyle.Render("Week")),
			headerStyle.Render(dateStyle.Render("Starts")),
			headerStyle.Render(countStyle.Render("Done")),
		),
	}

	for _, c := range counts {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			weekStyle.Render(WeekLabel(c)),
			dateStyle.Render(c.Start.In(loc).Format(time.DateOnly)),
			countStyle.Render(strconv.Itoa(c.Count)),
			renderBar(c.Count, peak),
		))
	}

	rows = append(rows, mutedStyle.Render(fmt.Sprintf("%d completed over %d weeks", total, len(counts))))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// WeekLabel formats a week as "2026-W07".
func WeekLabel(c model.WeekCount) string {
	return fmt.Sprintf("%d-W%02d", c.Year, c.Week)
}

func renderBar(count, peak int) string {
	if count == 0 || peak == 0 {
		return mutedStyle.Render("·")
	}
	width := max(count*maxBarWidth/peak, 1)
	return barStyle.Render(strings.Repeat("█", width))
}
