package services

import (
	"context"
	"log/slog"

	"paydue/internal/auth"
)

// WatchSessions consumes session events and drops the owner's cached
// collection on sign-out, so the next sign-in starts from a fresh store
// read instead of another session's leftovers. Blocks until ctx is done
// or the event stream closes.
func (s *PaymentService) WatchSessions(ctx context.Context, events <-chan auth.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != auth.EventSignOut {
				continue
			}
			s.Revalidate(event.OwnerID)
			slog.DebugContext(ctx, "Dropped cached collection on sign-out",
				"owner_id", event.OwnerID)
		}
	}
}
