package update

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/studyd/internal/chat"
	"github.com/sandeepkv93/studyd/internal/commands"
	"github.com/sandeepkv93/studyd/internal/taskstore"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Quitting = true
		m.Close()
		return m, tea.Quit
	case "esc":
		m.Palette.Active = false
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
	return m, nil
}

func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}

	var follow tea.Cmd
	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			if m.store == nil {
				return commands.Result{}, errUnavailable
			}
			draft, err := a.Draft.Normalize()
			if err != nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
			}
			store, ctx := m.store, m.ctx
			follow = mutateCmd("added", draft.Title, func() (taskstore.Ack, error) {
				return store.Create(ctx, draft)
			})
			m.CurrentView = ViewPlanner
			return commands.Result{Message: pendingStatus("added", draft.Title).Text}, nil
		},
		Toggle: func(t commands.TargetArgs) (commands.Result, error) {
			return m.paletteMutation("toggled", t.Target, taskstore.Store.Toggle, &follow)
		},
		Delete: func(t commands.TargetArgs) (commands.Result, error) {
			return m.paletteMutation("deleted", t.Target, taskstore.Store.Delete, &follow)
		},
		Ask: func(a commands.AskArgs) (commands.Result, error) {
			return m.paletteAsk(a.Text, chat.ModeChat, &follow)
		},
		Image: func(a commands.AskArgs) (commands.Result, error) {
			return m.paletteAsk(a.Text, chat.ModeImage, &follow)
		},
		NewChat: func() (commands.Result, error) {
			m = m.resetChat()
			m.CurrentView = ViewDoubtRoom
			return commands.Result{Message: "new chat started"}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message}
	return m, follow
}

func (m *Model) paletteAsk(text string, mode chat.Mode, follow *tea.Cmd) (commands.Result, error) {
	next, cmd, err := m.ask(text, mode)
	if err != nil {
		return commands.Result{}, err
	}
	*m = next
	m.CurrentView = ViewDoubtRoom
	*follow = cmd
	return commands.Result{Message: "thinking..."}, nil
}

func (m Model) paletteMutation(verb, target string, apply func(taskstore.Store, context.Context, string) taskstore.Ack, follow *tea.Cmd) (commands.Result, error) {
	id, title, err := m.resolve(target)
	if err != nil {
		return commands.Result{}, err
	}
	store, ctx := m.store, m.ctx
	*follow = mutateCmd(verb, title, func() (taskstore.Ack, error) {
		return apply(store, ctx, id), nil
	})
	return commands.Result{Message: pendingStatus(verb, title).Text}, nil
}

func (m Model) resolve(target string) (string, string, error) {
	if m.store == nil {
		return "", "", errUnavailable
	}
	id, ok := commands.ResolveTarget(target, m.Tasks)
	if !ok {
		return "", "", &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no task matches %q", target)}
	}
	for _, task := range m.Tasks {
		if task.ID == id {
			return id, task.Title, nil
		}
	}
	return id, id, nil
}

