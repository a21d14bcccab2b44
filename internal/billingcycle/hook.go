package billingcycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/platform/db"
)

// ErrSyncFailed is returned by TxHook when the synchronizer reports an error
// outcome, so the surrounding customer mutation rolls back.
var ErrSyncFailed = errors.New("billing cycle synchronisation failed")

// TxHook binds the synchronizer to a caller's transaction. It satisfies
// customers.LifecycleHook.
type TxHook struct {
	sync     *Synchronizer
	newStore func(db.DBTX) Store
}

// NewTxHook returns a hook that runs sync against a transaction-scoped PG store.
func NewTxHook(sync *Synchronizer) *TxHook {
	return &TxHook{sync: sync, newStore: NewPGStore}
}

// NewTxHookWithStore lets callers choose how a Store is built from a connection.
func NewTxHookWithStore(sync *Synchronizer, newStore func(db.DBTX) Store) *TxHook {
	return &TxHook{sync: sync, newStore: newStore}
}

func (h *TxHook) bound(tx db.DBTX) *Synchronizer {
	return h.sync.WithStore(h.newStore(tx))
}

func (h *TxHook) CustomerCreated(ctx context.Context, tx db.DBTX, customerID int64) error {
	return asError(h.bound(tx).SyncForNewCustomer(ctx, customerID))
}

func (h *TxHook) CustomerUpdated(ctx context.Context, tx db.DBTX, customerID int64) error {
	return asError(h.bound(tx).UpdateForCustomer(ctx, customerID))
}

func (h *TxHook) CustomerDeleting(ctx context.Context, tx db.DBTX, customerID int64) error {
	return asError(h.bound(tx).DeleteForCustomer(ctx, customerID))
}

// AccrueAmountDue adds a bill total, or a negated one on cancel, to the customer's
// cycle within tx.
func (h *TxHook) AccrueAmountDue(ctx context.Context, tx db.DBTX, customerID int64, at time.Time, amount decimal.Decimal) (bool, error) {
	return h.bound(tx).AccrueAmountDue(ctx, customerID, at, amount)
}

func asError(res Result) error {
	if res.Failed() {
		return fmt.Errorf("%w: %s", ErrSyncFailed, res.Message)
	}
	return nil
}
