package notification

import (
	"context"
	"log/slog"
)

const (
	// KindSignedIn indicates a completed two-step login.
	KindSignedIn = "signed_in"
	// KindSessionExpired indicates a sign out forced by inactivity.
	KindSessionExpired = "session_expired"
	// KindDocumentUpdated indicates a document slot received a new link.
	KindDocumentUpdated = "document_updated"
)

// Message describes a notification payload. Destination is the applicant's
// CEU number.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// Notifies reports whether kind is forwarded to a Notifier. Other session
// events only reach the audit log.
func Notifies(kind string) bool {
	switch kind {
	case KindSignedIn, KindSessionExpired, KindDocumentUpdated:
		return true
	}
	return false
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
