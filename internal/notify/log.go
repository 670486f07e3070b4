package notify

import (
	"context"
	"time"

	"stellarclub.org/internal/obs"
)

// LogNotifier records notifications as structured log lines. It is the
// default delivery channel when no SMTP relay is configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, n Notification) error {
	obs.LogEvent(map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"type":       "notify",
		"kind":       string(n.Kind),
		"recipients": n.Recipients,
		"subject":    n.Subject,
	})
	return nil
}
