package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wolfman30/staydesk-support/internal/intake"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1).
			MarginBottom(1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	contentStyle = lipgloss.NewStyle().
			Padding(0, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

func renderTranscript(w io.Writer, id string, messages []intake.Message) {
	fmt.Fprintln(w, headerStyle.Render("Conversation "+id))
	for _, m := range messages {
		label := systemStyle.Render("assistant")
		if m.Speaker == intake.SpeakerUser {
			label = userStyle.Render("user")
		}
		fmt.Fprintln(w, label)
		fmt.Fprintln(w, contentStyle.Render(m.Text))
	}
}

func renderProfile(w io.Writer, p intake.CustomerProfile, role intake.Role, signal intake.EscalationSignal) {
	rows := [][2]string{
		{"name", p.Name},
		{"email", p.Email},
		{"phone", p.Phone},
		{"location", p.Location},
		{"issue", string(p.IssueType)},
		{"booking", p.BookingReference},
		{"urgency", string(p.Urgency)},
		{"contact", string(p.PreferredContact)},
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Profile"))
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", metaStyle.Render(fmt.Sprintf("%-9s", row[0])), row[1])
	}
	fmt.Fprintf(w, "  %s %d%%\n", metaStyle.Render(fmt.Sprintf("%-9s", "confidence")), intake.Confidence(p))
	fmt.Fprintf(w, "  %s %s\n", metaStyle.Render(fmt.Sprintf("%-9s", "role")), role)
	if signal.ShouldEscalate {
		fmt.Fprintf(w, "  %s %s (%s)\n", metaStyle.Render(fmt.Sprintf("%-9s", "escalate")), signal.Reason, signal.Priority())
	}
}

func renderCheck(w io.Writer, failures []string) {
	fmt.Fprintln(w)
	if len(failures) == 0 {
		fmt.Fprintln(w, passStyle.Render("PASS"))
		return
	}
	fmt.Fprintln(w, failStyle.Render("FAIL"))
	fmt.Fprintln(w, contentStyle.Render(strings.Join(failures, "\n")))
}
