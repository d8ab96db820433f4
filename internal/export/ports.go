// Package export defines ports for pushing computed snapshots to
// external destinations.
package export

import (
	"context"

	"finman/internal/core"
)

// SnapshotAppender records one net worth snapshot row in an external
// store, returning a reference to the written row.
type SnapshotAppender interface {
	AppendSnapshot(ctx context.Context, user core.User, snap core.NetWorthSnapshot) (rowRef string, err error)
}
