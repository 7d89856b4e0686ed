package notify

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"
)

var ErrUnsupportedPlatform = errors.New("notify: unsupported platform")

type Permission int

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "default"
	}
}

type Action struct {
	ID    string
	Label string
}

type Notification struct {
	Title string
	Body  string
	Icon  string
	// Tag replaces any earlier notification carrying the same tag.
	Tag                string
	Actions            []Action
	RequireInteraction bool
	// Timeout is the auto-dismiss delay; zero leaves it to the platform.
	Timeout time.Duration
}

type Notifier interface {
	Show(Notification) error
}

// PermissionSource reports and requests the right to show notifications.
type PermissionSource interface {
	Permission() Permission
	Request() Permission
}

type NoopNotifier struct{}

func (NoopNotifier) Show(Notification) error { return nil }

// ExecNotifier shells out to notify-send on linux and osascript on darwin.
type ExecNotifier struct {
	AppName string
	goos    string
	run     func(name string, args ...string) error
}

func NewExecNotifier(appName string) *ExecNotifier {
	return &ExecNotifier{
		AppName: appName,
		goos:    runtime.GOOS,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (n *ExecNotifier) Show(note Notification) error {
	switch n.goos {
	case "linux":
		return n.run("notify-send", notifySendArgs(n.AppName, note)...)
	case "darwin":
		return n.run("osascript", osascriptArgs(note)...)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, n.goos)
	}
}

// notify-send cannot render action buttons without blocking, so actions are
// not forwarded.
func notifySendArgs(app string, note Notification) []string {
	args := make([]string, 0, 12)
	if app != "" {
		args = append(args, "-a", app)
	}
	if note.Icon != "" {
		args = append(args, "-i", note.Icon)
	}
	if note.RequireInteraction {
		args = append(args, "-u", "critical")
	}
	if note.Timeout > 0 {
		args = append(args, "-t", strconv.FormatInt(note.Timeout.Milliseconds(), 10))
	}
	if note.Tag != "" {
		args = append(args, "-h", "string:x-canonical-private-synchronous:"+note.Tag)
	}
	return append(args, note.Title, note.Body)
}

// Title and body travel as run handler arguments and are never part of the
// script source.
func osascriptArgs(note Notification) []string {
	return []string{
		"-e", "on run argv",
		"-e", "display notification (item 2 of argv) with title (item 1 of argv)",
		"-e", "end run",
		"--", note.Title, note.Body,
	}
}

// DesktopPermission grants when desktop notifications are enabled and the
// platform tool is installed. Request resolves the default state once.
type DesktopPermission struct {
	enabled  bool
	goos     string
	lookPath func(string) (string, error)

	mu    sync.Mutex
	state Permission
}

func NewDesktopPermission(enabled bool) *DesktopPermission {
	return &DesktopPermission{
		enabled:  enabled,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		state:    PermissionDefault,
	}
}

func (p *DesktopPermission) Permission() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *DesktopPermission) Request() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PermissionDefault {
		return p.state
	}
	p.state = PermissionDenied
	if !p.enabled {
		return p.state
	}
	tool := ""
	switch p.goos {
	case "linux":
		tool = "notify-send"
	case "darwin":
		tool = "osascript"
	}
	if tool != "" {
		if _, err := p.lookPath(tool); err == nil {
			p.state = PermissionGranted
		}
	}
	return p.state
}

// StaticPermission is a fixed answer, used by headless runs and tests.
type StaticPermission Permission

func (s StaticPermission) Permission() Permission { return Permission(s) }
func (s StaticPermission) Request() Permission    { return Permission(s) }
