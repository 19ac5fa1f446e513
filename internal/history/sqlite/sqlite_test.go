package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/farmkeep/farmkeep/internal/history"
)

func TestSinkInMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	events := []history.Event{
		{Type: history.EventStarted, OccurredAt: time.Now().UTC(), ShareID: "abc", PID: 100, ConfigPath: "/etc/share.json"},
		{Type: history.EventStopped, OccurredAt: time.Now().UTC(), ShareID: "abc", PID: 100, ConfigPath: "/etc/share.json", Detail: "exit status 0"},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Failed to send event: %v", err)
		}
	}

	var count int
	row := sink.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM share_history WHERE share_id = ?", "abc")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events, got %d", count)
	}

	var event, detail string
	row = sink.db.QueryRowContext(ctx,
		"SELECT event, detail FROM share_history WHERE share_id = ? ORDER BY occurred_at DESC LIMIT 1", "abc")
	if err := row.Scan(&event, &detail); err != nil {
		t.Fatalf("Failed to read event row: %v", err)
	}
	if event != "stopped" || detail != "exit status 0" {
		t.Errorf("Unexpected last event: %s / %s", event, detail)
	}
}

func TestSinkFileDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	sink, err := New("sqlite://" + path)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	if err := sink.Send(context.Background(), history.Event{
		Type: history.EventStarted, OccurredAt: time.Now().UTC(), ShareID: "abc", PID: 1, ConfigPath: "p",
	}); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}
}

func TestSinkEmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("Expected error for empty DSN")
	}
}
