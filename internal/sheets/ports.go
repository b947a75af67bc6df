package sheets

import (
	"context"

	"paydue/internal/core"
)

// Ports for outbound adapters.
type (
	// HistoryAppender records a paid payment in the external history
	// sheet and returns a reference to the written row.
	HistoryAppender interface {
		Append(ctx context.Context, p core.Payment) (rowRef string, err error)
	}
)
