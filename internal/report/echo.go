package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	repoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Echo prints a report. With styled set, section headings and repository
// headings are highlighted; the text written to files is never styled.
func Echo(w io.Writer, text string, styled bool) error {
	if styled {
		text = Highlight(text)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// Highlight styles the headings of a rendered report for terminal output.
func Highlight(text string) string {
	lines := strings.Split(text, "\n")
	inBody := false
	for i, line := range lines {
		switch line {
		case SectionRepositories, SectionCommits, SectionSummary:
			lines[i] = headingStyle.Render(line)
			inBody = line != SectionRepositories
			continue
		}
		if inBody && line != "" && !strings.HasPrefix(line, " ") && line != NoStandupItems {
			lines[i] = repoStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
