package postgres

import (
	"context"
	"time"
)

type AttemptRepository struct {
	db DB
}

func NewAttemptRepository(db DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Record(ctx context.Context, kind, email, ip string, success bool) error {
	const query = `
		INSERT INTO login_attempts (id, kind, email, ip_address, attempt_time, successful)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW(), $4)`
	_, err := r.db.Exec(ctx, query, kind, email, ip, success)
	return err
}

// CountRecentFailed counts failures for the email or source IP inside the
// trailing window, ignoring anything before the key's most recent success.
// One successful login clears the slate without any cleanup job.
func (r *AttemptRepository) CountRecentFailed(ctx context.Context, kind, email, ip string, window time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*) FROM login_attempts
		WHERE kind = $1
		  AND (email = $2 OR ip_address = $3)
		  AND successful = FALSE
		  AND attempt_time > $4
		  AND attempt_time > COALESCE((
			SELECT MAX(attempt_time) FROM login_attempts
			WHERE kind = $1 AND (email = $2 OR ip_address = $3) AND successful = TRUE
		  ), 'epoch'::timestamptz)`

	var count int
	err := r.db.QueryRow(ctx, query, kind, email, ip, time.Now().Add(-window)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AttemptRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM login_attempts WHERE attempt_time < $1`
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
