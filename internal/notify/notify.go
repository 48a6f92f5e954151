// Package notify delivers desktop notifications. Delivery is best-effort:
// callers log failures and move on, nothing is retried.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

type Notification struct {
	Title string
	Body  string
	Sound bool
}

type Notifier interface {
	Send(Notification) error
}

type NoopNotifier struct{}

func (NoopNotifier) Send(Notification) error { return nil }

// ExecNotifier shells out to the platform notification command. Unsupported
// platforms silently deliver nothing.
type ExecNotifier struct{}

func (ExecNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		args := []string{n.Title, n.Body}
		if n.Sound {
			args = append([]string{"--urgency=critical"}, args...)
		}
		return exec.Command("notify-send", args...).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		if n.Sound {
			script += ` sound name "default"`
		}
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
