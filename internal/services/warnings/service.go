package warnings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgrepo "github.com/joinua/JR-Foxy/internal/repo/postgres"

	"github.com/joinua/JR-Foxy/internal/domain/model"
)

// DefaultValidity is how long a warning stays active unless revoked.
const DefaultValidity = 30 * 24 * time.Hour

var ErrEmptyReason = errors.New("warning reason is empty")

type ledgerStore interface {
	Create(ctx context.Context, params pgrepo.CreateWarningParams) (model.WarningRecord, int, error)
	RevokeLatest(ctx context.Context, userID, revokedBy int64, now time.Time) (*model.WarningRecord, int, error)
	CountActive(ctx context.Context, userID int64, now time.Time) (int, error)
	ListActive(ctx context.Context, userID int64, now time.Time) ([]model.WarningRecord, error)
	ListHistory(ctx context.Context, userID int64) ([]model.WarningRecord, error)
}

// Service is the warning ledger: an append-mostly audit trail where the active
// count is always a projection over the records, never a stored counter.
type Service struct {
	store    ledgerStore
	validity time.Duration
	now      func() time.Time
}

func NewService(store ledgerStore, validity time.Duration) *Service {
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &Service{
		store:    store,
		validity: validity,
		now:      time.Now,
	}
}

type CreateParams struct {
	UserID        int64
	ChatID        int64
	Reason        string
	IssuedBy      int64
	IssuedByLevel int
	SubjectName   string
	IssuerName    string
}

// Create issues a warning and returns it with the active count recomputed in
// the same transaction as the insert.
func (s *Service) Create(ctx context.Context, params CreateParams) (model.WarningRecord, int, error) {
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		return model.WarningRecord{}, 0, ErrEmptyReason
	}
	if s.store == nil {
		return model.WarningRecord{}, 0, fmt.Errorf("warning ledger store is not configured")
	}

	issuedAt := s.now().UTC()

	return s.store.Create(ctx, pgrepo.CreateWarningParams{
		UserID:        params.UserID,
		ChatID:        params.ChatID,
		Reason:        reason,
		IssuedAt:      issuedAt,
		ExpiresAt:     issuedAt.Add(s.validity),
		IssuedBy:      params.IssuedBy,
		IssuedByLevel: params.IssuedByLevel,
		SubjectName:   params.SubjectName,
		IssuerName:    params.IssuerName,
	})
}

// RevokeLatest revokes the newest active warning. A nil record with no error
// means the user had nothing active — callers treat that as a no-op signal.
func (s *Service) RevokeLatest(ctx context.Context, userID, revokedBy int64) (*model.WarningRecord, int, error) {
	if s.store == nil {
		return nil, 0, fmt.Errorf("warning ledger store is not configured")
	}

	return s.store.RevokeLatest(ctx, userID, revokedBy, s.now().UTC())
}

func (s *Service) CountActive(ctx context.Context, userID int64) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("warning ledger store is not configured")
	}

	return s.store.CountActive(ctx, userID, s.now().UTC())
}

func (s *Service) ListActive(ctx context.Context, userID int64) ([]model.WarningRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("warning ledger store is not configured")
	}

	return s.store.ListActive(ctx, userID, s.now().UTC())
}

func (s *Service) ListHistory(ctx context.Context, userID int64) ([]model.WarningRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("warning ledger store is not configured")
	}

	return s.store.ListHistory(ctx, userID)
}

// StatusLabel mirrors model.WarningRecord.StatusAt at the service boundary.
func (s *Service) StatusLabel(record model.WarningRecord) model.WarningStatus {
	return record.StatusAt(s.now().UTC())
}
