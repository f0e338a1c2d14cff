package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joinua/JR-Foxy/internal/domain/enums"
	"github.com/joinua/JR-Foxy/internal/domain/model"
)

var ErrCandidateNotFound = errors.New("candidate not found")

const candidateColumns = `
	user_id,
	reception_chat_id,
	status,
	created_at,
	review_due_at,
	wait_count,
	buttons_message_id,
	reviewed_by,
	reviewed_at,
	invite_link`

type CandidatesRepo struct {
	pool *pgxpool.Pool
}

func NewCandidatesRepo(pool *pgxpool.Pool) *CandidatesRepo {
	return &CandidatesRepo{pool: pool}
}

// UpsertOnJoin creates the admission row or resets an existing one back to
// "candidate". Re-entry restarts the workflow: reviewer, decision and invite
// fields are cleared and the wait counter starts over.
func (r *CandidatesRepo) UpsertOnJoin(ctx context.Context, userID, receptionChatID int64, reviewDueAt time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO candidates (
	user_id,
	reception_chat_id,
	status,
	created_at,
	review_due_at,
	wait_count
) VALUES ($1, $2, 'candidate', NOW(), $3, 0)
ON CONFLICT (user_id, reception_chat_id) DO UPDATE SET
	status = 'candidate',
	created_at = NOW(),
	review_due_at = EXCLUDED.review_due_at,
	wait_count = 0,
	buttons_message_id = NULL,
	reviewed_by = NULL,
	reviewed_at = NULL,
	invite_link = NULL
`, userID, receptionChatID, reviewDueAt); err != nil {
		return fmt.Errorf("upsert candidate on join: %w", err)
	}

	return nil
}

func (r *CandidatesRepo) Get(ctx context.Context, userID, receptionChatID int64) (model.Candidate, error) {
	if r.pool == nil {
		return model.Candidate{}, fmt.Errorf("postgres pool is nil")
	}

	return r.queryOne(ctx, `
SELECT `+candidateColumns+`
FROM candidates
WHERE user_id = $1 AND reception_chat_id = $2
`, userID, receptionChatID)
}

// GetInAnyChat returns the most recently created admission row for the user
// across all reception chats.
func (r *CandidatesRepo) GetInAnyChat(ctx context.Context, userID int64) (model.Candidate, error) {
	if r.pool == nil {
		return model.Candidate{}, fmt.Errorf("postgres pool is nil")
	}

	return r.queryOne(ctx, `
SELECT `+candidateColumns+`
FROM candidates
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1
`, userID)
}

type TransitionParams struct {
	Status     enums.CandidateStatus
	ReviewedBy *int64
	ReviewedAt *time.Time
	InviteLink *string
}

// Transition applies a status change, touching only the fields provided.
func (r *CandidatesRepo) Transition(ctx context.Context, userID, receptionChatID int64, params TransitionParams) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if params.Status == "" {
		return fmt.Errorf("candidate status is required")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE candidates
SET
	status = $3,
	reviewed_by = COALESCE($4, reviewed_by),
	reviewed_at = COALESCE($5, reviewed_at),
	invite_link = COALESCE($6, invite_link)
WHERE user_id = $1 AND reception_chat_id = $2
`, userID, receptionChatID, string(params.Status), params.ReviewedBy, params.ReviewedAt, params.InviteLink)
	if err != nil {
		return fmt.Errorf("transition candidate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCandidateNotFound
	}

	return nil
}

// Postpone keeps the row in "candidate", bumps the wait counter and moves the
// review deadline.
func (r *CandidatesRepo) Postpone(ctx context.Context, userID, receptionChatID int64, newDueAt time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE candidates
SET review_due_at = $3, wait_count = wait_count + 1
WHERE user_id = $1 AND reception_chat_id = $2 AND status = 'candidate'
`, userID, receptionChatID, newDueAt)
	if err != nil {
		return fmt.Errorf("postpone candidate review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCandidateNotFound
	}

	return nil
}

// SetButtonsMessage remembers the last rendered decision prompt so a repeated
// trigger replaces it instead of stacking duplicates.
func (r *CandidatesRepo) SetButtonsMessage(ctx context.Context, userID, receptionChatID int64, messageID int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE candidates
SET buttons_message_id = $3
WHERE user_id = $1 AND reception_chat_id = $2
`, userID, receptionChatID, messageID); err != nil {
		return fmt.Errorf("set candidate buttons message: %w", err)
	}

	return nil
}

func (r *CandidatesRepo) queryOne(ctx context.Context, query string, args ...interface{}) (model.Candidate, error) {
	var c model.Candidate
	var status string

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&c.UserID,
		&c.ReceptionChatID,
		&status,
		&c.CreatedAt,
		&c.ReviewDueAt,
		&c.WaitCount,
		&c.ButtonsMessageID,
		&c.ReviewedBy,
		&c.ReviewedAt,
		&c.InviteLink,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Candidate{}, ErrCandidateNotFound
		}
		return model.Candidate{}, fmt.Errorf("query candidate: %w", err)
	}

	c.Status = enums.CandidateStatus(status)
	return c, nil
}
