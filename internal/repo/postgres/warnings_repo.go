package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joinua/JR-Foxy/internal/domain/model"
)

const warningColumns = `
	id,
	user_id,
	chat_id,
	reason,
	issued_at,
	expires_at,
	issued_by,
	issued_by_level,
	subject_name,
	issuer_name,
	is_revoked,
	revoked_at,
	revoked_by`

type WarningsRepo struct {
	pool *pgxpool.Pool
}

func NewWarningsRepo(pool *pgxpool.Pool) *WarningsRepo {
	return &WarningsRepo{pool: pool}
}

type CreateWarningParams struct {
	UserID        int64
	ChatID        int64
	Reason        string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	IssuedBy      int64
	IssuedByLevel int
	SubjectName   string
	IssuerName    string
}

// Create inserts the warning and recounts the subject's active warnings inside
// one transaction, behind a per-user advisory lock so concurrent warns on the
// same user serialize instead of interleaving.
func (r *WarningsRepo) Create(ctx context.Context, params CreateWarningParams) (model.WarningRecord, int, error) {
	if r.pool == nil {
		return model.WarningRecord{}, 0, fmt.Errorf("postgres pool is nil")
	}

	var record model.WarningRecord
	var activeCount int

	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockUserLedger(ctx, tx, params.UserID); err != nil {
			return err
		}

		err := tx.QueryRow(ctx, `
INSERT INTO warnings (
	user_id,
	chat_id,
	reason,
	issued_at,
	expires_at,
	issued_by,
	issued_by_level,
	subject_name,
	issuer_name,
	is_revoked,
	revoked_at,
	revoked_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, NULL, NULL)
RETURNING `+warningColumns+`
`,
			params.UserID,
			params.ChatID,
			params.Reason,
			params.IssuedAt,
			params.ExpiresAt,
			params.IssuedBy,
			params.IssuedByLevel,
			params.SubjectName,
			params.IssuerName,
		).Scan(scanWarningDest(&record)...)
		if err != nil {
			return fmt.Errorf("insert warning: %w", err)
		}

		count, err := countActiveTx(ctx, tx, params.UserID, params.IssuedAt)
		if err != nil {
			return err
		}
		activeCount = count

		return nil
	})
	if err != nil {
		return model.WarningRecord{}, 0, err
	}

	return record, activeCount, nil
}

// RevokeLatest flips the revocation fields on the newest active warning and
// returns it together with the recomputed active count. A nil record means
// there was nothing active to revoke; that is a no-op, not an error.
func (r *WarningsRepo) RevokeLatest(ctx context.Context, userID, revokedBy int64, now time.Time) (*model.WarningRecord, int, error) {
	if r.pool == nil {
		return nil, 0, fmt.Errorf("postgres pool is nil")
	}

	var revoked *model.WarningRecord
	var activeCount int

	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockUserLedger(ctx, tx, userID); err != nil {
			return err
		}

		var record model.WarningRecord
		err := tx.QueryRow(ctx, `
UPDATE warnings
SET is_revoked = TRUE, revoked_at = $3, revoked_by = $4
WHERE id = (
	SELECT id
	FROM warnings
	WHERE user_id = $1
	  AND is_revoked = FALSE
	  AND expires_at > $2
	ORDER BY issued_at DESC, id DESC
	LIMIT 1
)
RETURNING `+warningColumns+`
`, userID, now, now, revokedBy).Scan(scanWarningDest(&record)...)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("revoke latest warning: %w", err)
		}
		if err == nil {
			revoked = &record
		}

		count, err := countActiveTx(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		activeCount = count

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return revoked, activeCount, nil
}

// CountActive recomputes the active count from the ledger at the given time.
func (r *WarningsRepo) CountActive(ctx context.Context, userID int64, now time.Time) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM warnings
WHERE user_id = $1
  AND is_revoked = FALSE
  AND expires_at > $2
`, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active warnings: %w", err)
	}

	return count, nil
}

// ListActive returns the user's active warnings, newest first.
func (r *WarningsRepo) ListActive(ctx context.Context, userID int64, now time.Time) ([]model.WarningRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+warningColumns+`
FROM warnings
WHERE user_id = $1
  AND is_revoked = FALSE
  AND expires_at > $2
ORDER BY issued_at DESC, id DESC
`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list active warnings: %w", err)
	}
	defer rows.Close()

	return collectWarnings(rows)
}

// ListHistory returns every warning ever issued to the user, newest first,
// including revoked and expired records.
func (r *WarningsRepo) ListHistory(ctx context.Context, userID int64) ([]model.WarningRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+warningColumns+`
FROM warnings
WHERE user_id = $1
ORDER BY issued_at DESC, id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list warning history: %w", err)
	}
	defer rows.Close()

	return collectWarnings(rows)
}

func lockUserLedger(ctx context.Context, tx pgx.Tx, userID int64) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("acquire warning ledger lock: %w", err)
	}
	return nil
}

func countActiveTx(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) (int, error) {
	var count int
	if err := tx.QueryRow(ctx, `
SELECT COUNT(*)
FROM warnings
WHERE user_id = $1
  AND is_revoked = FALSE
  AND expires_at > $2
`, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active warnings in tx: %w", err)
	}
	return count, nil
}

func scanWarningDest(w *model.WarningRecord) []interface{} {
	return []interface{}{
		&w.ID,
		&w.UserID,
		&w.ChatID,
		&w.Reason,
		&w.IssuedAt,
		&w.ExpiresAt,
		&w.IssuedBy,
		&w.IssuedByLevel,
		&w.SubjectName,
		&w.IssuerName,
		&w.IsRevoked,
		&w.RevokedAt,
		&w.RevokedBy,
	}
}

func collectWarnings(rows pgx.Rows) ([]model.WarningRecord, error) {
	var records []model.WarningRecord
	for rows.Next() {
		var record model.WarningRecord
		if err := rows.Scan(scanWarningDest(&record)...); err != nil {
			return nil, fmt.Errorf("scan warning row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warning rows: %w", err)
	}
	return records, nil
}
