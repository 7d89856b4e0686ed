package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/studyd/internal/chat"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/taskstore"
	"github.com/sandeepkv93/studyd/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForTasksCmd(m.updates)}
	if m.scheduler != nil {
		cmds = append(cmds, waitForAlertCmd(m.scheduler.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		if m.CurrentView == ViewDoubtRoom && m.DoubtRoom.Composing {
			return m.handleComposeKey(typed)
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.SetValue("")
			m.commandInput.Focus()
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Planner:
			m.CurrentView = ViewPlanner
			return m, nil
		case m.Keys.DoubtRoom:
			m.CurrentView = ViewDoubtRoom
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown"}
			} else {
				m.Status = StatusBar{Text: "help hidden"}
			}
			return m, nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			m.Close()
			return m, tea.Quit
		}
		if m.CurrentView == ViewPlanner {
			return m.handlePlannerKey(typed)
		}
		return m.handleDoubtRoomKey(typed)
	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.askSpinner, cmd = m.askSpinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	case TasksChangedMsg:
		m.Tasks = typed.Tasks
		m.clampCursor()
		return m, waitForTasksCmd(m.updates)
	case AlertMsg:
		m.AlertLog = append(m.AlertLog, typed.Alert)
		if len(m.AlertLog) > maxAlertLog {
			m.AlertLog = m.AlertLog[len(m.AlertLog)-maxAlertLog:]
		}
		m.Status = StatusBar{Text: fmt.Sprintf("%s %s (%d min)", scheduler.AlertTitle, typed.Alert.Title, typed.Alert.Duration)}
		cmds := []tea.Cmd{bellCmd()}
		if m.scheduler != nil {
			cmds = append(cmds, waitForAlertCmd(m.scheduler.C()))
		}
		return m, tea.Batch(cmds...)
	case MutationMsg:
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			return m, nil
		}
		m.Status = ackStatus(typed.Verb, typed.Title, typed.Ack)
		return m, nil
	case AnswerMsg:
		m.waiting = false
		if m.session != nil {
			m.Messages = m.session.Messages()
			// An answer from a cleared chat can land while a newer question is in flight.
			m.waiting = m.session.Pending()
		}
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			return m, nil
		}
		m.Status = StatusBar{Text: "answer received"}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	var leftPane, rightPane string
	switch m.CurrentView {
	case ViewPlanner:
		leftPane = m.renderPlannerView()
		rightPane = m.renderAlertsView() + m.renderHelpIfVisible()
	case ViewDoubtRoom:
		leftPane = m.renderDoubtRoomView()
		rightPane = m.renderComposeView() + m.renderHelpIfVisible()
	}

	mode := "local"
	if m.store != nil {
		mode = string(m.store.Mode())
	}
	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("studyd | view: %s | store: %s | tasks: %d", m.CurrentView, mode, len(m.Tasks)),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: m.renderCommandPalette(),
		Footer: fmt.Sprintf("keys: %s planner | %s doubt room | / cmd | %s help | %s quit",
			m.Keys.Planner, m.Keys.DoubtRoom, m.Keys.Help, m.Keys.Quit),
	})
}

func (m Model) handlePlannerKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Tasks)-1 {
			m.Cursor++
		}
	case " ", "enter":
		if task, ok := m.selectedTask(); ok {
			store, ctx, id := m.store, m.ctx, task.ID
			m.Status = pendingStatus("toggled", task.Title)
			return m, mutateCmd("toggled", task.Title, func() (taskstore.Ack, error) {
				return store.Toggle(ctx, id), nil
			})
		}
	case "x":
		if task, ok := m.selectedTask(); ok {
			store, ctx, id := m.store, m.ctx, task.ID
			m.Status = pendingStatus("deleted", task.Title)
			return m, mutateCmd("deleted", task.Title, func() (taskstore.Ack, error) {
				return store.Delete(ctx, id), nil
			})
		}
	}
	return m, nil
}

func (m Model) handleDoubtRoomKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "i", "enter":
		m.DoubtRoom.Composing = true
		m.askInput.Focus()
		m.Status = StatusBar{Text: "compose mode"}
	case "tab":
		m.toggleAskMode()
	case "n":
		return m.resetChat(), nil
	}
	return m, nil
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Quitting = true
		m.Close()
		return m, tea.Quit
	case "esc":
		m.DoubtRoom.Composing = false
		m.askInput.Blur()
		m.Status = StatusBar{}
		return m, nil
	case "tab":
		m.toggleAskMode()
		return m, nil
	case "enter":
		text := m.askInput.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		next, cmd, err := m.ask(text, m.DoubtRoom.Mode)
		if err != nil {
			next.Status = StatusBar{Text: err.Error(), IsError: true}
			return next, nil
		}
		next.askInput.SetValue("")
		return next, cmd
	}
	if msg.Type == tea.KeyRunes {
		m.askInput.SetValue(m.askInput.Value() + string(msg.Runes))
		return m, nil
	}
	var cmd tea.Cmd
	m.askInput, cmd = m.askInput.Update(msg)
	return m, cmd
}

// ask shows the question right away and resolves the answer in a command;
// AnswerMsg then reloads the history from the session.
func (m Model) ask(text string, mode chat.Mode) (Model, tea.Cmd, error) {
	if m.session == nil {
		return m, nil, errUnavailable
	}
	if m.waiting || m.session.Pending() {
		return m, nil, chat.ErrBusy
	}
	m.waiting = true
	m.Status = StatusBar{Text: "thinking..."}
	m.Messages = append(m.Messages, chat.Message{Type: chat.RoleUser, Text: text})

	session, ctx := m.session, m.ctx
	answer := func() tea.Msg {
		reply, err := session.Send(ctx, text, mode)
		return AnswerMsg{Reply: reply, Err: err}
	}
	return m, tea.Batch(answer, m.askSpinner.Tick), nil
}

func (m *Model) toggleAskMode() {
	if m.DoubtRoom.Mode == chat.ModeImage {
		m.DoubtRoom.Mode = chat.ModeChat
	} else {
		m.DoubtRoom.Mode = chat.ModeImage
	}
	m.Status = StatusBar{Text: fmt.Sprintf("mode: %s", m.DoubtRoom.Mode)}
}

func (m Model) resetChat() Model {
	if m.session != nil {
		m.session.Reset()
	}
	m.Messages = nil
	m.waiting = false
	m.Status = StatusBar{Text: "new chat started"}
	return m
}

func (m Model) selectedTask() (model.Task, bool) {
	if m.store == nil || m.Cursor < 0 || m.Cursor >= len(m.Tasks) {
		return model.Task{}, false
	}
	return m.Tasks[m.Cursor], true
}

func (m *Model) clampCursor() {
	if m.Cursor >= len(m.Tasks) {
		m.Cursor = len(m.Tasks) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func waitForTasksCmd(ch <-chan []model.Task) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		tasks, ok := <-ch
		if !ok {
			return nil
		}
		return TasksChangedMsg{Tasks: tasks}
	}
}

func waitForAlertCmd(ch <-chan scheduler.Alert) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		alert, ok := <-ch
		if !ok {
			return nil
		}
		return AlertMsg{Alert: alert}
	}
}

func isKnownView(v View) bool {
	switch v {
	case ViewPlanner, ViewDoubtRoom:
		return true
	default:
		return false
	}
}
