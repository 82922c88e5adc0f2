package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"krx-autotrade/config"

	"github.com/stretchr/testify/assert"
)

type fakeSyncService struct {
	SyncService
	holdingsSyncs int
	err           error
}

func (f *fakeSyncService) SyncHoldings(ctx context.Context, date time.Time) (int, error) {
	f.holdingsSyncs++
	return 0, f.err
}

type fakeReconcileLedger struct {
	LedgerService
	reconciles int
}

func (f *fakeReconcileLedger) Reconcile(ctx context.Context, date time.Time) error {
	f.reconciles++
	return nil
}

func TestReconcileOnStart(t *testing.T) {
	syncSvc := &fakeSyncService{}
	ledgerSvc := &fakeReconcileLedger{}
	svc := &monitorService{
		cfg:       &config.Config{},
		log:       testLogger(),
		syncSvc:   syncSvc,
		ledgerSvc: ledgerSvc,
	}

	svc.reconcileOnStart(context.Background())
	assert.Equal(t, 1, syncSvc.holdingsSyncs)
	assert.Equal(t, 1, ledgerSvc.reconciles)
}

func TestReconcileOnStartSkipsReconcileWhenSyncFails(t *testing.T) {
	syncSvc := &fakeSyncService{err: errors.New("broker unavailable")}
	ledgerSvc := &fakeReconcileLedger{}
	svc := &monitorService{
		cfg:       &config.Config{},
		log:       testLogger(),
		syncSvc:   syncSvc,
		ledgerSvc: ledgerSvc,
	}

	// A failed snapshot must not be reconciled against; the ledger keeps
	// its last known state until the next sync succeeds.
	svc.reconcileOnStart(context.Background())
	assert.Equal(t, 1, syncSvc.holdingsSyncs)
	assert.Zero(t, ledgerSvc.reconciles)
}
