package node

import (
	"time"

	"github.com/foldlink/foldlink/internal/observability"
)

// PendingView adapts a client's correlation table to the ops debug endpoint.
type PendingView struct {
	Client *Client
}

func (v PendingView) Snapshot() []observability.PendingEntry {
	if v.Client == nil {
		return nil
	}
	calls := v.Client.Pending()
	out := make([]observability.PendingEntry, 0, len(calls))
	for _, call := range calls {
		out = append(out, observability.PendingEntry{
			Code:     call.Code,
			QueuedAt: call.QueuedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
