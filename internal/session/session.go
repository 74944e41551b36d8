// Package session keeps the pickup locker a shopper picked before the
// order exists.
package session

import (
	"context"
	"time"
)

// DefaultTTL is how long a locker selection is remembered.
const DefaultTTL = 2 * time.Hour

// Store remembers one locker selection per checkout session.
type Store interface {
	SetLocker(ctx context.Context, sessionID, lockerID string) error
	// Locker returns "" when nothing is selected or the selection expired.
	Locker(ctx context.Context, sessionID string) (string, error)
	Clear(ctx context.Context, sessionID string) error
}
