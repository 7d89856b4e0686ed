package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/studyd/internal/chat"
	"github.com/sandeepkv93/studyd/internal/metrics"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/taskstore"
)

const maxRequestBytes = 1 << 20

type Options struct {
	Store          taskstore.Store
	Chat           *chat.Session
	Logger         logrus.FieldLogger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// Server is the JSON surface used by the web front end.
type Server struct {
	store   taskstore.Store
	chat    *chat.Session
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	origins []string
}

func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("httpapi: nil store")
	}
	if opts.Chat == nil {
		return nil, errors.New("httpapi: nil chat session")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		store:   opts.Store,
		chat:    opts.Chat,
		log:     opts.Logger.WithField("component", "http"),
		metrics: opts.Metrics,
		origins: opts.AllowedOrigins,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /v1/tasks", s.listTasks)
	mux.HandleFunc("POST /v1/tasks", s.createTask)
	mux.HandleFunc("POST /v1/tasks/{id}/toggle", s.toggleTask)
	mux.HandleFunc("DELETE /v1/tasks/{id}", s.deleteTask)
	mux.HandleFunc("POST /v1/ask", s.ask)
	mux.HandleFunc("GET /v1/chat", s.chatHistory)
	mux.HandleFunc("DELETE /v1/chat", s.newChat)
	mux.Handle("GET /metrics", s.metrics.Handler())

	var handler http.Handler = metricsMiddleware(s.metrics, mux)
	handler = loggingMiddleware(s.log, handler)
	handler = requestIDMiddleware(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(handler)
	return otelhttp.NewHandler(handler, "studyd")
}

// flexInt accepts 60 or "60"; the planner form posts minutes as a string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("duration %q is not a number", raw)
		}
		*f = flexInt(v)
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

type createTaskRequest struct {
	Title     string  `json:"title"`
	StartTime string  `json:"startTime"`
	Duration  flexInt `json:"duration"`
}

type tasksResponse struct {
	Mode  taskstore.Mode `json:"mode"`
	Tasks []model.Task   `json:"tasks"`
}

type ackResponse struct {
	Ack   string       `json:"ack"`
	Tasks []model.Task `json:"tasks"`
}

type askRequest struct {
	Query string    `json:"query"`
	Mode  chat.Mode `json:"mode"`
}

type askResponse struct {
	Message  chat.Message   `json:"message"`
	Messages []chat.Message `json:"messages"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) listTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tasksResponse{Mode: s.store.Mode(), Tasks: s.store.List()})
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var body createTaskRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ack, err := s.store.Create(r.Context(), model.Draft{
		Title:     body.Title,
		StartTime: body.StartTime,
		Duration:  int(body.Duration),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeAck(w, ack)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	s.writeAck(w, s.store.Toggle(r.Context(), r.PathValue("id")))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	s.writeAck(w, s.store.Delete(r.Context(), r.PathValue("id")))
}

func (s *Server) writeAck(w http.ResponseWriter, ack taskstore.Ack) {
	status := http.StatusOK
	switch ack {
	case taskstore.AckApplied:
		status = http.StatusOK
	case taskstore.AckSubmitted:
		status = http.StatusAccepted
	case taskstore.AckNoop:
		status = http.StatusNotFound
	case taskstore.AckFailed:
		status = http.StatusBadGateway
	case taskstore.AckRejected:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, ackResponse{Ack: ack.String(), Tasks: s.store.List()})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var body askRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reply, err := s.chat.Send(r.Context(), body.Query, body.Mode)
	switch {
	case errors.Is(err, chat.ErrEmptyInput), errors.Is(err, chat.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.log.WithError(err).WithField("request_id", RequestID(r.Context())).Error("ask failed")
		writeError(w, http.StatusInternalServerError, chat.FallbackReply)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Message: reply, Messages: s.chat.Messages()})
}

func (s *Server) chatHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.chat.Messages()})
}

func (s *Server) newChat(w http.ResponseWriter, _ *http.Request) {
	s.chat.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBytes))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
