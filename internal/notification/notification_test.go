package notification

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerNotifierWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	if err := n.Send(context.Background(), Message{Kind: KindSignedIn, Destination: "CEU-1", Body: "welcome"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"kind":"signed_in"`) || !strings.Contains(out, `"destination":"CEU-1"`) {
		t.Fatalf("unexpected log line %s", out)
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{}); err != nil {
		t.Fatalf("nil notifier returned %v", err)
	}
}

func TestNotifies(t *testing.T) {
	if !Notifies(KindDocumentUpdated) {
		t.Fatal("document updates should be forwarded")
	}
	if Notifies("step1_failed") {
		t.Fatal("failed logins should not be forwarded")
	}
}
