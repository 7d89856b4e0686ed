package chat

import (
	"context"
	"runtime"
	"sync"
	"testing"

	"github.com/sandeepkv93/studyd/internal/gateway"
)

type scriptedAsker struct {
	mu      sync.Mutex
	queries []string
	reply   gateway.Response
	block   chan struct{}
}

func (a *scriptedAsker) Ask(_ context.Context, query string) gateway.Response {
	a.mu.Lock()
	a.queries = append(a.queries, query)
	block := a.block
	a.mu.Unlock()
	if block != nil {
		<-block
	}
	return a.reply
}

func TestSendRecordsUserAndAIMessages(t *testing.T) {
	img := "https://img.example/x.png"
	asker := &scriptedAsker{reply: gateway.Response{Response: "answer", Videos: []string{}, Image: &img}}
	s := NewSession(asker)

	reply, err := s.Send(t.Context(), "a mitochondrion", ModeImage)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Type != RoleAI || reply.Text != "answer" || reply.Image == nil || *reply.Image != img {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if asker.queries[0] != "Generate an image of: a mitochondrion" {
		t.Fatalf("expected image prefix, got %q", asker.queries[0])
	}

	msgs := s.Messages()
	if len(msgs) != 2 || msgs[0].Type != RoleUser || msgs[0].Text != "a mitochondrion" || msgs[1].ID != reply.ID {
		t.Fatalf("unexpected history: %+v", msgs)
	}
	if msgs[0].ID == msgs[1].ID {
		t.Fatal("message ids must be unique")
	}
}

func TestSendChatModeDefaultsAndValidation(t *testing.T) {
	asker := &scriptedAsker{reply: gateway.Response{Response: "ok"}}
	s := NewSession(asker)

	if _, err := s.Send(t.Context(), "what is gravity", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if asker.queries[0] != "what is gravity" {
		t.Fatalf("chat mode must pass input through, got %q", asker.queries[0])
	}
	if _, err := s.Send(t.Context(), "   ", ModeChat); err != ErrEmptyInput {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := s.Send(t.Context(), "x", "video"); err != ErrInvalidMode {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestSendEmptyAnswerUsesFallback(t *testing.T) {
	s := NewSession(&scriptedAsker{})
	reply, err := s.Send(t.Context(), "hello", ModeChat)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Text != FallbackReply {
		t.Fatalf("expected fallback reply, got %q", reply.Text)
	}
}

func TestSendWhilePendingIsBusyAndResetDropsLateAnswer(t *testing.T) {
	asker := &scriptedAsker{reply: gateway.Response{Response: "late"}, block: make(chan struct{})}
	s := NewSession(asker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Send(context.Background(), "slow question", ModeChat)
	}()

	for !s.Pending() {
		runtime.Gosched()
	}
	if _, err := s.Send(t.Context(), "another", ModeChat); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	s.Reset()
	close(asker.block)
	<-done

	if msgs := s.Messages(); len(msgs) != 0 {
		t.Fatalf("expected cleared history after new chat, got %+v", msgs)
	}
	if s.Pending() {
		t.Fatal("expected no pending question after reset")
	}
}
