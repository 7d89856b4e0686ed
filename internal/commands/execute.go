package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add     func(AddArgs) (Result, error)
	Toggle  func(TargetArgs) (Result, error)
	Delete  func(TargetArgs) (Result, error)
	Ask     func(AskArgs) (Result, error)
	Image   func(AskArgs) (Result, error)
	NewChat func() (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeToggle:
		if handlers.Toggle == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Toggle(*cmd.Target)
	case TypeDelete:
		if handlers.Delete == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Delete(*cmd.Target)
	case TypeAsk:
		if handlers.Ask == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Ask(*cmd.Ask)
	case TypeImage:
		if handlers.Image == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Image(*cmd.Ask)
	case TypeNewChat:
		if handlers.NewChat == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.NewChat()
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
