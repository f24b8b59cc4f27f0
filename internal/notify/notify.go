// Package notify shows desktop notifications when long batch runs finish.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

const appName = "baobao"

// Notifier sends desktop notifications; a disabled notifier is a no-op.
type Notifier struct {
	enabled bool
	send    func(title, message, icon string) error
}

func New(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
	}
}

// BatchDone reports the outcome of a batch run.
func (n *Notifier) BatchDone(dir string, succeeded, failed int) {
	if failed > 0 {
		n.notify("batch finished with errors",
			fmt.Sprintf("%s: %d done, %d failed", dir, succeeded, failed))
		return
	}
	n.notify("batch finished", fmt.Sprintf("%s: %d files done", dir, succeeded))
}

// Error reports a run that stopped early.
func (n *Notifier) Error(msg string) {
	n.notify("error", truncate(msg, 100))
}

func (n *Notifier) notify(title, message string) {
	if n == nil || !n.enabled {
		return
	}
	// notification failures never affect the run
	_ = n.send(appName+": "+title, message, "")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
