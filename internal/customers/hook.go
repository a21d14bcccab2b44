package customers

import (
	"context"

	"github.com/hydrobill/hydrobill/internal/platform/db"
)

// LifecycleHook is called inside the transaction of every customer mutation.
// Returning an error rolls the mutation back.
type LifecycleHook interface {
	CustomerCreated(ctx context.Context, tx db.DBTX, customerID int64) error
	CustomerUpdated(ctx context.Context, tx db.DBTX, customerID int64) error
	CustomerDeleting(ctx context.Context, tx db.DBTX, customerID int64) error
}

type nopHook struct{}

func (nopHook) CustomerCreated(context.Context, db.DBTX, int64) error  { return nil }
func (nopHook) CustomerUpdated(context.Context, db.DBTX, int64) error  { return nil }
func (nopHook) CustomerDeleting(context.Context, db.DBTX, int64) error { return nil }
