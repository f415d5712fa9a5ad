package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

func (r *runner) ok(msg string) {
	fmt.Fprintln(r.stdout, successStyle.Render("✔ "+msg))
}

func (r *runner) fail(msg string) {
	fmt.Fprintln(r.stderr, errorStyle.Render("✖ "+msg))
}

func panel(w io.Writer, lines []string) {
	fmt.Fprintln(w, panelString(strings.Join(lines, "\n")))
}

func panelString(inner string) string {
	return panelStyle.Render(inner)
}

// todoLine renders a single todo as "☐ #3 Buy milk".
func todoLine(id uint64, title string, completed bool) string {
	box := mutedStyle.Render(boxUnchecked)
	text := title
	if completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(title)
	}
	return fmt.Sprintf("%s %s %s", box, mutedStyle.Render(fmt.Sprintf("#%d", id)), text)
}

func pageFooter(pageNum, pageCount, total int) string {
	return mutedStyle.Render(fmt.Sprintf("page %d of %d · %d todos", pageNum, max(pageCount, 1), total))
}
