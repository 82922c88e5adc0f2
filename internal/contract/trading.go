package contract

import (
	"context"
	"time"
)

// LedgerContract exposes the lot-ledger maintenance operations to scheduler
// strategies without importing the service package.
type LedgerContract interface {
	ApplyDailyNetDelta(ctx context.Context, tradeDate time.Time) error
	RebuildRange(ctx context.Context, from, to time.Time) error
	RefreshMetrics(ctx context.Context, today time.Time) (int, error)
	Reconcile(ctx context.Context, date time.Time) error
}

// BrokerSyncContract pulls brokerage state into the local tables.
type BrokerSyncContract interface {
	// SyncTradeFills stores the day's fills. Returns the number of new rows.
	SyncTradeFills(ctx context.Context, date time.Time) (int64, error)
	// SyncHoldings replaces the day's holdings snapshot. Returns the number
	// of holdings stored.
	SyncHoldings(ctx context.Context, date time.Time) (int, error)
}

// TriggerSweepContract resolves abandoned pending triggers.
type TriggerSweepContract interface {
	SweepStale(ctx context.Context) (int, error)
}
