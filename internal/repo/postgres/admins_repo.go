package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminsRepo struct {
	pool *pgxpool.Pool
}

type AdminRecord struct {
	UserID    int64
	FirstName string
	LastName  string
	Username  string
	Level     int
}

func NewAdminsRepo(pool *pgxpool.Pool) *AdminsRepo {
	return &AdminsRepo{pool: pool}
}

// Upsert adds an admin at the default level or refreshes an existing profile
// without touching the level.
func (r *AdminsRepo) Upsert(ctx context.Context, userID int64, firstName, lastName, username string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO admins (user_id, first_name, last_name, username, level, created_at, updated_at)
VALUES ($1, $2, $3, $4, 1, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	username = EXCLUDED.username,
	updated_at = NOW()
`, userID, firstName, lastName, username); err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}

	return nil
}

func (r *AdminsRepo) SetLevel(ctx context.Context, userID int64, level int) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE admins
SET level = $2, updated_at = NOW()
WHERE user_id = $1
`, userID, level)
	if err != nil {
		return false, fmt.Errorf("set admin level: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *AdminsRepo) Delete(ctx context.Context, userID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete admin: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetLevel returns the admin level, or 0 for users that are not admins.
func (r *AdminsRepo) GetLevel(ctx context.Context, userID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var level int
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(
	(SELECT level FROM admins WHERE user_id = $1),
	0
)
`, userID).Scan(&level)
	if err != nil {
		return 0, fmt.Errorf("get admin level: %w", err)
	}

	return level, nil
}

func (r *AdminsRepo) List(ctx context.Context) ([]AdminRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, first_name, last_name, username, level
FROM admins
ORDER BY level DESC, user_id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []AdminRecord
	for rows.Next() {
		var admin AdminRecord
		if err := rows.Scan(&admin.UserID, &admin.FirstName, &admin.LastName, &admin.Username, &admin.Level); err != nil {
			return nil, fmt.Errorf("scan admin row: %w", err)
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin rows: %w", err)
	}

	return admins, nil
}
