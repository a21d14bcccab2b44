// Package rbac enforces the closed staff role set on HTTP routes.
package rbac

import (
	"context"

	"github.com/hydrobill/hydrobill/internal/shared"
)

// PrincipalLoader resolves the staff member bound to a session.
// Implementations return an error wrapping httpx.ErrNotFound for unknown or
// inactive staff.
type PrincipalLoader interface {
	PrincipalByID(ctx context.Context, id int64) (shared.Principal, error)
}

// LoaderFunc adapts a function to PrincipalLoader.
type LoaderFunc func(ctx context.Context, id int64) (shared.Principal, error)

// PrincipalByID implements PrincipalLoader.
func (f LoaderFunc) PrincipalByID(ctx context.Context, id int64) (shared.Principal, error) {
	return f(ctx, id)
}
