package schedulerlock

import (
	"context"
	"time"
)

// Lock is the persisted run-lock of a scheduler job. A holder owns it until LockedUntil,
// so a crashed holder stops blocking runs once its lease expires.
type Lock struct {
	Name           string     `json:"name"`
	Holder         string     `json:"holder"`
	LockedUntil    time.Time  `json:"locked_until"`
	AcquiredAt     time.Time  `json:"acquired_at"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
	LastSummary    *string    `json:"last_summary,omitempty"`
}

// IsHeld reports whether the lease is still valid at now
func (l *Lock) IsHeld(now time.Time) bool {
	return now.Before(l.LockedUntil)
}

// Repository defines the interface for run-lock persistence
type Repository interface {
	// Acquire takes the lock for holder when it is free or its lease expired. It returns false
	// when another holder owns a valid lease.
	Acquire(ctx context.Context, name, holder string, now time.Time, lease time.Duration) (bool, error)
	// Release ends the lease of holder and records the run summary
	Release(ctx context.Context, name, holder string, finishedAt time.Time, summary string) error
	Get(ctx context.Context, name string) (*Lock, error)
}
