package sqlrepo

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/schedulerlock"
	"github.com/freelanceops/billing/internal/logger"
)

type lockRow struct {
	Name           string  `db:"name"`
	Holder         string  `db:"holder"`
	LockedUntil    string  `db:"locked_until"`
	AcquiredAt     string  `db:"acquired_at"`
	LastFinishedAt *string `db:"last_finished_at"`
	LastSummary    *string `db:"last_summary"`
}

type schedulerLockRepository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewSchedulerLockRepository(db *db.DB, logger *logger.Logger) schedulerlock.Repository {
	return &schedulerLockRepository{db: db, logger: logger}
}

// Acquire takes the lease when the row is new, expired or already held by the same holder.
// Instants are fixed-width UTC text so the string comparison orders them correctly.
func (r *schedulerLockRepository) Acquire(ctx context.Context, name, holder string, now time.Time, lease time.Duration) (bool, error) {
	query := `INSERT INTO scheduler_locks (name, holder, locked_until, acquired_at)
		VALUES (:name, :holder, :locked_until, :now)
		ON CONFLICT (name) DO UPDATE SET
			holder = excluded.holder,
			locked_until = excluded.locked_until,
			acquired_at = excluded.acquired_at
		WHERE scheduler_locks.locked_until < :now OR scheduler_locks.holder = :holder`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"name":         name,
		"holder":       holder,
		"locked_until": formatTime(now.Add(lease)),
		"now":          formatTime(now),
	})
	if err != nil {
		return false, wrapErr(err, "scheduler lock", "acquire", map[string]any{"lock": name})
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "scheduler lock", "acquire", map[string]any{"lock": name})
	}
	return n > 0, nil
}

// Release ends the lease early and records the outcome of the run
func (r *schedulerLockRepository) Release(ctx context.Context, name, holder string, finishedAt time.Time, summary string) error {
	_, err := r.db.NamedExecContext(ctx,
		`UPDATE scheduler_locks SET locked_until = :finished_at, last_finished_at = :finished_at, last_summary = :summary
		WHERE name = :name AND holder = :holder`,
		map[string]interface{}{
			"name":        name,
			"holder":      holder,
			"finished_at": formatTime(finishedAt),
			"summary":     summary,
		})
	if err != nil {
		return wrapErr(err, "scheduler lock", "release", map[string]any{"lock": name})
	}
	return nil
}

func (r *schedulerLockRepository) Get(ctx context.Context, name string) (*schedulerlock.Lock, error) {
	var row lockRow
	if err := r.db.NamedGetContext(ctx, &row,
		`SELECT name, holder, locked_until, acquired_at, last_finished_at, last_summary FROM scheduler_locks WHERE name = :name`,
		map[string]interface{}{"name": name}); err != nil {
		return nil, wrapErr(err, "scheduler lock", "get", map[string]any{"lock": name})
	}
	return &schedulerlock.Lock{
		Name:           row.Name,
		Holder:         row.Holder,
		LockedUntil:    parseTime(row.LockedUntil),
		AcquiredAt:     parseTime(row.AcquiredAt),
		LastFinishedAt: parseTimePtr(row.LastFinishedAt),
		LastSummary:    row.LastSummary,
	}, nil
}
