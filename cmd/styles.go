package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/modelchat/internal"
	"github.com/mattn/go-runewidth"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// column widths of the session table, in terminal cells
const (
	nameWidth    = 24
	whenWidth    = 12
	previewWidth = 32
)

// pad fits s into width cells, truncating with an ellipsis. Styling is
// applied after padding so escape codes do not count towards the width.
func pad(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// printSessionTable writes sessions as an aligned table. The active
// session is marked with '*'.
func printSessionTable(w io.Writer, sessions []*internal.Session, activeID string) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, headerStyle.Render("No sessions found"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Found %d session(s)", len(sessions))))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "    %s  %s  %s  %s  %s  %s\n",
		titleStyle.Render(pad("#", 3)),
		titleStyle.Render(pad("Name", nameWidth)),
		titleStyle.Render(pad("User", 6)),
		titleStyle.Render(pad("Msgs", 4)),
		titleStyle.Render(pad("Active", whenWidth)),
		titleStyle.Render("Last message"))
	fmt.Fprintln(w, "  "+strings.Repeat("─", 3+nameWidth+6+4+whenWidth+previewWidth+14))

	for i, session := range sessions {
		marker := " "
		if session.ID == activeID {
			marker = "*"
		}
		preview := ""
		if len(session.Messages) > 0 {
			preview = session.Messages[len(session.Messages)-1].Content
		}
		when := ""
		if t := session.LastActivity(); !t.IsZero() {
			when = formatWhen(t)
		}
		fmt.Fprintf(w, "  %s %s  %s  %s  %s  %s  %s\n",
			marker,
			pad(strconv.Itoa(i+1), 3),
			pad(session.Name, nameWidth),
			idStyle.Render(pad(strconv.Itoa(session.UserID), 6)),
			countStyle.Render(pad(strconv.Itoa(len(session.Messages)), 4)),
			dateStyle.Render(pad(when, whenWidth)),
			dateStyle.Render(pad(preview, previewWidth)))
	}
}

// printMessages writes a session's transcript
func printMessages(w io.Writer, session *internal.Session) {
	fmt.Fprintln(w, sectionStyle.Render(session.Name))
	if len(session.Messages) == 0 {
		fmt.Fprintln(w, dateStyle.Render("(no messages)"))
		return
	}
	for _, msg := range session.Messages {
		printMessage(w, msg)
	}
}

func printMessage(w io.Writer, msg internal.Message) {
	style := assistantStyle
	if msg.Sender == internal.SenderUser {
		style = userStyle
	}
	stamp := ""
	if !msg.Timestamp.IsZero() {
		stamp = " " + dateStyle.Render(formatWhen(msg.Timestamp))
	}
	fmt.Fprintf(w, "%s%s\n%s\n\n", style.Render(msg.Sender.Label()+":"), stamp, msg.Content)
}

// formatWhen formats t relative to now the way the session list does
func formatWhen(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}
