package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/studyd/internal/gateway"
)

var (
	ErrEmptyInput  = errors.New("chat: empty input")
	ErrInvalidMode = errors.New("chat: invalid mode")
	ErrBusy        = errors.New("chat: a question is already in flight")
)

// FallbackReply is shown when the gateway could not produce any answer.
const FallbackReply = "Sorry, I encountered an error."

type Mode string

const (
	ModeChat  Mode = "chat"
	ModeImage Mode = "image"
)

func (m Mode) IsValid() bool {
	return m == ModeChat || m == ModeImage
}

type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

type Message struct {
	ID        string    `json:"id"`
	Type      Role      `json:"type"`
	Text      string    `json:"text"`
	Videos    []string  `json:"videos,omitempty"`
	Image     *string   `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Asker is the gateway call a session depends on.
type Asker interface {
	Ask(ctx context.Context, query string) gateway.Response
}

// Session is one Doubt Room conversation. Questions are answered one at a
// time; Send while another question is pending returns ErrBusy.
type Session struct {
	asker Asker
	now   func() time.Time

	mu       sync.Mutex
	messages []Message
	pending  bool
	// epoch changes on Reset so late answers from a cleared chat are dropped.
	epoch uint64
}

func NewSession(asker Asker) *Session {
	return &Session{asker: asker, now: time.Now}
}

// Send records the user's message, asks the gateway and records the answer.
func (s *Session) Send(ctx context.Context, input string, mode Mode) (Message, error) {
	if mode == "" {
		mode = ModeChat
	}
	if !mode.IsValid() {
		return Message{}, ErrInvalidMode
	}
	if strings.TrimSpace(input) == "" {
		return Message{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.pending = true
	epoch := s.epoch
	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Type:      RoleUser,
		Text:      input,
		CreatedAt: s.now().UTC(),
	})
	s.mu.Unlock()

	query := input
	if mode == ModeImage {
		query = gateway.ImagePrefix + input
	}
	resp := s.asker.Ask(ctx, query)

	reply := Message{
		ID:        uuid.NewString(),
		Type:      RoleAI,
		Text:      resp.Response,
		Videos:    resp.Videos,
		Image:     resp.Image,
		CreatedAt: s.now().UTC(),
	}
	if strings.TrimSpace(reply.Text) == "" && reply.Image == nil {
		reply.Text = FallbackReply
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.messages = append(s.messages, reply)
		s.pending = false
	}
	return reply, nil
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Reset starts a new chat.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.pending = false
	s.epoch++
}
