// Package notify pushes operator alerts via Pushover.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gregdel/pushover"
)

// Notifier sends alerts to a configured Pushover recipient. A nil
// Notifier is safe to use and sends nothing.
type Notifier struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
}

// New returns a Notifier, or nil when credentials are not configured.
func New(token, recipient string) *Notifier {
	if token == "" || recipient == "" {
		return nil
	}
	return &Notifier{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(recipient),
	}
}

// ReauthRequired alerts the operator that the media server rejected
// our credentials and the bridge is stuck until they are fixed.
func (n *Notifier) ReauthRequired(server string, cause error) {
	if n == nil {
		return
	}
	message := &pushover.Message{
		Message:    fmt.Sprintf("Credentials were rejected by %s so polling is paused. Update JRIVER_USERNAME and JRIVER_PASSWORD then restart the bridge. Cause: %v", server, cause),
		Title:      "JRiver bridge needs reauthentication",
		Priority:   pushover.PriorityHigh,
		Timestamp:  time.Now().Unix(),
		DeviceName: "jriver-bridge",
	}
	if _, err := n.app.SendMessage(message, n.recipient); err != nil {
		slog.With(slog.String("error", err.Error())).Error("Failed to send reauth notification")
	}
}
