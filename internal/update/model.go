package update

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/sandeepkv93/studyd/internal/chat"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/taskstore"
)

type View string

const (
	ViewPlanner   View = "Planner"
	ViewDoubtRoom View = "Doubt Room"
)

const maxAlertLog = 20

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Planner   string
	DoubtRoom string
	Help      string
	Quit      string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

// DoubtRoomState is the compose box of the chat view.
type DoubtRoomState struct {
	Composing bool
	Mode      chat.Mode
}

type Model struct {
	CurrentView View
	Tasks       []model.Task
	Cursor      int
	Messages    []chat.Message
	AlertLog    []scheduler.Alert
	DoubtRoom   DoubtRoomState
	Palette     CommandPaletteState
	HelpVisible bool
	Status      StatusBar
	Keys        GlobalKeyMap
	Quitting    bool
	LastError   error

	ctx       context.Context
	store     taskstore.Store
	session   *chat.Session
	scheduler *scheduler.Engine
	updates   chan []model.Task
	unsub     func()

	commandInput textinput.Model
	askInput     textinput.Model
	askSpinner   spinner.Model
	helpModel    help.Model
	waiting      bool
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// TasksChangedMsg carries the latest task list snapshot from the store.
type TasksChangedMsg struct {
	Tasks []model.Task
}

type AlertMsg struct {
	Alert scheduler.Alert
}

// MutationMsg reports a store mutation that ran outside the update loop.
type MutationMsg struct {
	Verb  string
	Title string
	Ack   taskstore.Ack
	Err   error
}

// AnswerMsg is delivered when a Doubt Room question completes.
type AnswerMsg struct {
	Reply chat.Message
	Err   error
}

// NewModel builds the UI over a store and a chat session. engine may be nil
// when alerts are not wanted.
func NewModel(ctx context.Context, store taskstore.Store, session *chat.Session, engine *scheduler.Engine) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		CurrentView: ViewPlanner,
		DoubtRoom:   DoubtRoomState{Mode: chat.ModeChat},
		Keys: GlobalKeyMap{
			Planner:   "1",
			DoubtRoom: "2",
			Help:      "?",
			Quit:      "q",
		},
		ctx:       ctx,
		store:     store,
		session:   session,
		scheduler: engine,
		updates:   make(chan []model.Task, 1),
	}
	if store != nil {
		m.Tasks = store.List()
		m.unsub = store.Subscribe(latestOnly(m.updates))
	}
	if session != nil {
		m.Messages = session.Messages()
	}
	m.initBubbleComponents()
	return m
}

// Close detaches the model from the store.
func (m Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.askInput = textinput.New()
	m.askInput.Prompt = "ask> "
	m.askInput.Placeholder = "Type your doubt here..."
	m.askInput.CharLimit = 1024
	m.askInput.Width = 48

	m.askSpinner = spinner.New()
	m.askSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
}

// latestOnly adapts a store subscription to a one-slot channel where a newer
// snapshot replaces an unread older one.
func latestOnly(ch chan []model.Task) func([]model.Task) {
	return func(tasks []model.Task) {
		for {
			select {
			case ch <- tasks:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
}
