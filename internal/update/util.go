package update

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/studyd/internal/taskstore"
)

var errUnavailable = errors.New("update: store or chat not configured")

func ackStatus(verb, title string, ack taskstore.Ack) StatusBar {
	switch ack {
	case taskstore.AckApplied:
		return StatusBar{Text: fmt.Sprintf("%s: %s", verb, title)}
	case taskstore.AckSubmitted:
		return StatusBar{Text: fmt.Sprintf("%s: %s (syncing)", verb, title)}
	case taskstore.AckNoop:
		return StatusBar{Text: fmt.Sprintf("no task to %s: %s", verbBase(verb), title), IsError: true}
	case taskstore.AckRejected:
		return StatusBar{Text: fmt.Sprintf("invalid task: %s", title), IsError: true}
	default:
		return StatusBar{Text: fmt.Sprintf("could not %s %s, see log", verbBase(verb), title), IsError: true}
	}
}

func pendingStatus(verb, title string) StatusBar {
	return StatusBar{Text: fmt.Sprintf("%s %s...", verbProgress(verb), title)}
}

// mutateCmd runs a store mutation off the update loop. Remote mutations wait
// on the database and must not freeze the UI.
func mutateCmd(verb, title string, apply func() (taskstore.Ack, error)) tea.Cmd {
	return func() tea.Msg {
		ack, err := apply()
		return MutationMsg{Verb: verb, Title: title, Ack: ack, Err: err}
	}
}

func verbProgress(verb string) string {
	switch verb {
	case "added":
		return "adding"
	case "toggled":
		return "toggling"
	case "deleted":
		return "deleting"
	default:
		return verb
	}
}

func verbBase(verb string) string {
	switch verb {
	case "added":
		return "add"
	case "toggled":
		return "toggle"
	case "deleted":
		return "delete"
	default:
		return verb
	}
}

// bellCmd rings the terminal bell on stderr so it does not disturb the frame.
func bellCmd() tea.Cmd {
	return func() tea.Msg {
		_, _ = fmt.Fprint(os.Stderr, "\a")
		return nil
	}
}

func clip(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
