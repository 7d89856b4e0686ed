package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandeepkv93/studyd/internal/model"
)

type Type string

const (
	TypeAdd     Type = "add"
	TypeToggle  Type = "toggle"
	TypeDelete  Type = "delete"
	TypeAsk     Type = "ask"
	TypeImage   Type = "image"
	TypeNewChat Type = "newchat"
)

// DefaultDuration is used when add omits the minutes.
const DefaultDuration = 60

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type AddArgs struct {
	Draft model.Draft
}

// TargetArgs names a task by id or by its 1-based position in the planner.
type TargetArgs struct {
	Target string
}

type AskArgs struct {
	Text string
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Target *TargetArgs
	Ask    *AskArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeToggle, TypeDelete:
		return parseTarget(input, Type(head), args)
	case TypeAsk, TypeImage:
		return parseAsk(input, Type(head), args)
	case TypeNewChat:
		return Command{Type: TypeNewChat, Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

// parseAdd reads "add <title...> <HH:MM> [minutes]" from the right.
func parseAdd(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title and a start time"}
	}

	duration := DefaultDuration
	last := args[len(args)-1]
	if n, err := strconv.Atoi(last); err == nil {
		duration = n
		args = args[:len(args)-1]
	}
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title and a start time"}
	}

	draft, err := model.Draft{
		Title:     strings.Join(args[:len(args)-1], " "),
		StartTime: args[len(args)-1],
		Duration:  duration,
	}.Normalize()
	if err != nil {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Draft: draft}}, nil
}

func parseTarget(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a task id or number", typ)}
	}
	return Command{Type: typ, Raw: raw, Target: &TargetArgs{Target: strings.TrimPrefix(args[0], "#")}}, nil
}

func parseAsk(raw string, typ Type, args []string) (Command, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a question", typ)}
	}
	return Command{Type: typ, Raw: raw, Ask: &AskArgs{Text: text}}, nil
}

// ResolveTarget maps a target to a task id: a number selects by position,
// anything else must match an id exactly.
func ResolveTarget(target string, tasks []model.Task) (string, bool) {
	if n, err := strconv.Atoi(target); err == nil && n >= 1 && n <= len(tasks) {
		return tasks[n-1].ID, true
	}
	if idx := model.IndexOf(tasks, target); idx >= 0 {
		return tasks[idx].ID, true
	}
	return "", false
}
