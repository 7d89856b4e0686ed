package update

import (
	"github.com/sandeepkv93/studyd/internal/views"
)

const titleWidth = 28

func (m Model) renderPlannerView() string {
	tasks := make([]views.PlannerTaskData, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		tasks = append(tasks, views.PlannerTaskData{
			ID:        t.ID,
			Title:     clip(t.Title, titleWidth),
			StartTime: t.StartTime,
			Duration:  t.Duration,
			Completed: t.Completed,
		})
	}
	mode := ""
	if m.store != nil {
		mode = string(m.store.Mode())
	}
	return views.RenderPlannerPanel(views.PlannerPanelData{
		Mode:   mode,
		Tasks:  tasks,
		Cursor: m.Cursor,
	})
}

func (m Model) renderAlertsView() string {
	alerts := make([]views.AlertData, 0, len(m.AlertLog))
	for _, a := range m.AlertLog {
		alerts = append(alerts, views.AlertData{
			Title:     clip(a.Title, titleWidth),
			StartTime: a.StartTime,
			Duration:  a.Duration,
			FiredAt:   a.FiredAt.Local().Format("15:04:05"),
		})
	}
	return views.RenderAlertsPanel(alerts)
}

func (m Model) renderDoubtRoomView() string {
	msgs := make([]views.ChatMessageData, 0, len(m.Messages))
	for _, msg := range m.Messages {
		data := views.ChatMessageData{
			Role:   string(msg.Type),
			Text:   msg.Text,
			Videos: msg.Videos,
		}
		if msg.Image != nil {
			data.Image = *msg.Image
		}
		msgs = append(msgs, data)
	}
	return views.RenderChatPanel(views.ChatPanelData{
		Messages:    msgs,
		Waiting:     m.waiting,
		SpinnerView: m.askSpinner.View(),
	})
}

func (m Model) renderComposeView() string {
	return views.RenderComposePanel(views.ComposeData{
		Mode:      string(m.DoubtRoom.Mode),
		Composing: m.DoubtRoom.Composing,
		InputView: m.askInput.View(),
	})
}

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.commandInput.Value())
}
