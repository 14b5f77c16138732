package presence

import (
	"context"
	"fmt"

	"github.com/mrweisheng/wscontroller/internal/journal"
	"github.com/mrweisheng/wscontroller/internal/registry"
)

// JournalSink appends every event to the connection journal.
type JournalSink struct {
	repo journal.Repository
}

// NewJournalSink creates a sink over repo.
func NewJournalSink(repo journal.Repository) *JournalSink {
	return &JournalSink{repo: repo}
}

// Deliver implements Sink.
func (s *JournalSink) Deliver(ctx context.Context, ev registry.Event) error {
	entry := &journal.Entry{
		Kind:       string(ev.Kind),
		DeviceID:   ev.DeviceID,
		PrevID:     ev.PrevID,
		Reason:     string(ev.Reason),
		RemoteAddr: ev.Remote,
		Online:     ev.Online,
		OccurredAt: ev.At,
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("journaling %s event: %w", ev.Kind, err)
	}
	return nil
}
