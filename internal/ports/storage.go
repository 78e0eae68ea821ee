package ports

import (
	"context"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// SnapshotRecorder persists raw fetched inputs so a scan can be replayed offline.
// Only inputs are stored, never analysis results.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, snap domain.Snapshot) error
}

// SnapshotStore is a recorder that can also read back what it recorded.
type SnapshotStore interface {
	SnapshotRecorder

	// LatestSnapshot returns the most recent snapshot for key.
	LatestSnapshot(ctx context.Context, key domain.MarketKey) (domain.Snapshot, error)

	// Close closes the underlying database.
	Close() error
}
