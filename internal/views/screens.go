package views

import (
	"fmt"
	"strings"
)

type PlannerTaskData struct {
	ID        string
	Title     string
	StartTime string
	Duration  int
	Completed bool
}

type PlannerPanelData struct {
	Mode   string
	Tasks  []PlannerTaskData
	Cursor int
}

type AlertData struct {
	Title     string
	StartTime string
	Duration  int
	FiredAt   string
}

type ChatMessageData struct {
	Role   string
	Text   string
	Image  string
	Videos []string
}

type ChatPanelData struct {
	Messages    []ChatMessageData
	Waiting     bool
	SpinnerView string
}

type ComposeData struct {
	Mode      string
	Composing bool
	InputView string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderPlannerPanel(data PlannerPanelData) string {
	var b strings.Builder
	b.WriteString("planner:\n")
	b.WriteString(fmt.Sprintf("store: %s\n", data.Mode))
	b.WriteString("actions: [j/k]move [space]done [x]delete [/]add <title> <HH:MM> [min]\n")
	if len(data.Tasks) == 0 {
		b.WriteString("\nNo tasks yet. Add one to get started.")
		return b.String()
	}
	b.WriteString("\n")
	for i, task := range data.Tasks {
		cursor := " "
		if i == data.Cursor {
			cursor = ">"
		}
		check := "[ ]"
		if task.Completed {
			check = "[x]"
		}
		b.WriteString(fmt.Sprintf("%s %2d. %s %s %s (%d min)\n", cursor, i+1, check, task.StartTime, task.Title, task.Duration))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderAlertsPanel(alerts []AlertData) string {
	var b strings.Builder
	b.WriteString("alerts:\n")
	if len(alerts) == 0 {
		b.WriteString("(none yet)")
		return b.String()
	}
	for i := len(alerts) - 1; i >= 0; i-- {
		a := alerts[i]
		b.WriteString(fmt.Sprintf("%s %s @%s, %d min\n", a.FiredAt, a.Title, a.StartTime, a.Duration))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// RenderChatPanel renders the Doubt Room history; answers are markdown.
func RenderChatPanel(data ChatPanelData) string {
	var b strings.Builder
	b.WriteString("doubt room:\n")
	if len(data.Messages) == 0 && !data.Waiting {
		b.WriteString("\nAsk anything about your studies. Press [i] to type.")
		return b.String()
	}
	for _, msg := range data.Messages {
		b.WriteString("\n")
		if msg.Role == "user" {
			b.WriteString("you: " + msg.Text + "\n")
			continue
		}
		b.WriteString("ai:\n")
		b.WriteString(RenderMarkdown(msg.Text) + "\n")
		if msg.Image != "" {
			b.WriteString("image: " + msg.Image + "\n")
		}
		for _, v := range msg.Videos {
			b.WriteString("video: " + v + "\n")
		}
	}
	if data.Waiting {
		b.WriteString(fmt.Sprintf("\n%s thinking...", data.SpinnerView))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderComposePanel(data ComposeData) string {
	var b strings.Builder
	b.WriteString("compose:\n")
	b.WriteString(fmt.Sprintf("mode: %s\n", data.Mode))
	if data.Composing {
		b.WriteString("actions: [enter]send [tab]mode [esc]done\n")
	} else {
		b.WriteString("actions: [i]type [tab]mode [n]new chat\n")
	}
	b.WriteString(data.InputView)
	return b.String()
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("\n\nhelp:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
