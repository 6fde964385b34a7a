package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetHash(ctx context.Context, namespace, key string) (string, bool, error) {
	var hash string
	query := `SELECT content_hash FROM ledger_entries WHERE namespace = $1 AND key = $2`
	err := r.db.QueryRowContext(ctx, query, namespace, key).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// UpsertSeen records that a chunk key was produced during a run. The row is
// locked for the duration of the transaction so concurrent runs over the same
// namespace cannot interleave a read-modify-write.
func (r *PostgresRepo) UpsertSeen(ctx context.Context, namespace, key, contentHash, groupID string, runTime time.Time) (UpsertResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var existingHash string
	query := `SELECT content_hash FROM ledger_entries WHERE namespace = $1 AND key = $2 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, namespace, key).Scan(&existingHash)

	var result UpsertResult
	switch {
	case errors.Is(err, sql.ErrNoRows):
		insert := `INSERT INTO ledger_entries (namespace, key, content_hash, group_id, updated_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, insert, namespace, key, contentHash, groupID, runTime); err != nil {
			return 0, err
		}
		result = ResultCreated

	case err != nil:
		return 0, err

	case existingHash != contentHash:
		update := `UPDATE ledger_entries SET content_hash = $1, group_id = $2, updated_at = $3 WHERE namespace = $4 AND key = $5`
		if _, err := tx.ExecContext(ctx, update, contentHash, groupID, runTime, namespace, key); err != nil {
			return 0, err
		}
		result = ResultUpdated

	default:
		bump := `UPDATE ledger_entries SET updated_at = $1 WHERE namespace = $2 AND key = $3`
		if _, err := tx.ExecContext(ctx, bump, runTime, namespace, key); err != nil {
			return 0, err
		}
		result = ResultUnchanged
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return result, nil
}

// ListStale returns keys whose parent document was covered by the current run
// but which the run did not reproduce: their timestamp predates the run.
func (r *PostgresRepo) ListStale(ctx context.Context, namespace string, groupIDs []string, beforeRunTime time.Time) ([]string, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	query := `SELECT key FROM ledger_entries WHERE namespace = $1 AND group_id = ANY($2) AND updated_at < $3 ORDER BY key`
	rows, err := r.db.QueryContext(ctx, query, namespace, pq.Array(groupIDs), beforeRunTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *PostgresRepo) DeleteKeys(ctx context.Context, namespace string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	query := `DELETE FROM ledger_entries WHERE namespace = $1 AND key = ANY($2)`
	res, err := r.db.ExecContext(ctx, query, namespace, pq.Array(keys))
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err == nil && affected != int64(len(keys)) {
		return fmt.Errorf("expected to delete %d ledger entries, deleted %d", len(keys), affected)
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context, namespace string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM ledger_entries WHERE namespace = $1`
	err := r.db.QueryRowContext(ctx, query, namespace).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
