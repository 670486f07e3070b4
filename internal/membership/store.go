package membership

import (
	"context"
	"time"
)

// Store describes persistence operations required by the membership subsystem.
type Store interface {
	Create(ctx context.Context, a *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	ListStudents(ctx context.Context, status ApprovalStatus) ([]*Account, error)
	ListByRoles(ctx context.Context, roles ...Role) ([]*Account, error)

	// Decide applies the pending -> decided transition as a compare-and-set
	// on the current status. It reports false when no pending row matched,
	// so concurrent decisions cannot both apply.
	Decide(ctx context.Context, accountID, deciderID string, status ApprovalStatus, at time.Time) (bool, error)
}
