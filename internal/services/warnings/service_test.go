package warnings

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	pgrepo "github.com/joinua/JR-Foxy/internal/repo/postgres"

	"github.com/joinua/JR-Foxy/internal/domain/model"
)

// fakeLedger recomputes the active count by re-scanning all records with the
// active predicate, which is exactly the property the SQL store must uphold.
type fakeLedger struct {
	records []model.WarningRecord
	nextID  int64
}

func (f *fakeLedger) countAt(userID int64, now time.Time) int {
	count := 0
	for _, record := range f.records {
		if record.UserID == userID && record.ActiveAt(now) {
			count++
		}
	}
	return count
}

func (f *fakeLedger) Create(_ context.Context, params pgrepo.CreateWarningParams) (model.WarningRecord, int, error) {
	f.nextID++
	record := model.WarningRecord{
		ID:            f.nextID,
		UserID:        params.UserID,
		ChatID:        params.ChatID,
		Reason:        params.Reason,
		IssuedAt:      params.IssuedAt,
		ExpiresAt:     params.ExpiresAt,
		IssuedBy:      params.IssuedBy,
		IssuedByLevel: params.IssuedByLevel,
		SubjectName:   params.SubjectName,
		IssuerName:    params.IssuerName,
	}
	f.records = append(f.records, record)
	return record, f.countAt(params.UserID, params.IssuedAt), nil
}

func (f *fakeLedger) RevokeLatest(_ context.Context, userID, revokedBy int64, now time.Time) (*model.WarningRecord, int, error) {
	latest := -1
	for i, record := range f.records {
		if record.UserID != userID || !record.ActiveAt(now) {
			continue
		}
		if latest == -1 || record.IssuedAt.After(f.records[latest].IssuedAt) ||
			(record.IssuedAt.Equal(f.records[latest].IssuedAt) && record.ID > f.records[latest].ID) {
			latest = i
		}
	}
	if latest == -1 {
		return nil, f.countAt(userID, now), nil
	}

	f.records[latest].IsRevoked = true
	f.records[latest].RevokedAt = &now
	f.records[latest].RevokedBy = &revokedBy
	revoked := f.records[latest]
	return &revoked, f.countAt(userID, now), nil
}

func (f *fakeLedger) CountActive(_ context.Context, userID int64, now time.Time) (int, error) {
	return f.countAt(userID, now), nil
}

func (f *fakeLedger) ListActive(_ context.Context, userID int64, now time.Time) ([]model.WarningRecord, error) {
	var active []model.WarningRecord
	for _, record := range f.records {
		if record.UserID == userID && record.ActiveAt(now) {
			active = append(active, record)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID > active[j].ID })
	return active, nil
}

func (f *fakeLedger) ListHistory(_ context.Context, userID int64) ([]model.WarningRecord, error) {
	var history []model.WarningRecord
	for _, record := range f.records {
		if record.UserID == userID {
			history = append(history, record)
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].ID > history[j].ID })
	return history, nil
}

func newTestService(store ledgerStore, now time.Time) *Service {
	svc := NewService(store, DefaultValidity)
	svc.now = func() time.Time { return now }
	return svc
}

func TestCreateRejectsEmptyReason(t *testing.T) {
	svc := NewService(nil, 0)

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, _, err := svc.Create(context.Background(), CreateParams{UserID: 1, ChatID: 1, Reason: reason})
		if !errors.Is(err, ErrEmptyReason) {
			t.Fatalf("expected ErrEmptyReason for %q, got %v", reason, err)
		}
	}
}

func TestCreateReturnsConsistentActiveCount(t *testing.T) {
	ledger := &fakeLedger{}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(ledger, now)

	ctx := context.Background()
	userID := int64(42)

	for i := 1; i <= 3; i++ {
		record, count, err := svc.Create(ctx, CreateParams{
			UserID: userID, ChatID: -100, Reason: "spam", IssuedBy: 7, IssuedByLevel: 3,
		})
		if err != nil {
			t.Fatalf("create warning #%d: %v", i, err)
		}
		if count != i {
			t.Fatalf("active count after create #%d: got %d want %d", i, count, i)
		}
		if !record.ExpiresAt.Equal(now.Add(DefaultValidity)) {
			t.Fatalf("unexpected expiry: %v", record.ExpiresAt)
		}
		if count != ledger.countAt(userID, now) {
			t.Fatalf("returned count diverged from re-scan: %d vs %d", count, ledger.countAt(userID, now))
		}
	}
}

func TestRevokeLatestPicksNewestActive(t *testing.T) {
	ledger := &fakeLedger{}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(ledger, now)

	ctx := context.Background()
	userID := int64(42)

	first, _, err := svc.Create(ctx, CreateParams{UserID: userID, ChatID: -100, Reason: "flood"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	svc.now = func() time.Time { return now.Add(time.Hour) }
	second, _, err := svc.Create(ctx, CreateParams{UserID: userID, ChatID: -100, Reason: "toxicity"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	revoked, count, err := svc.RevokeLatest(ctx, userID, 7)
	if err != nil {
		t.Fatalf("revoke latest: %v", err)
	}
	if revoked == nil || revoked.ID != second.ID {
		t.Fatalf("expected newest warning %d revoked, got %+v", second.ID, revoked)
	}
	if count != 1 {
		t.Fatalf("active count after revoke: got %d want 1", count)
	}

	active, err := svc.ListActive(ctx, userID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Fatalf("unexpected active set: %+v", active)
	}
}

func TestRevokeWithoutActiveWarningsIsNoOp(t *testing.T) {
	ledger := &fakeLedger{}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(ledger, now)

	revoked, count, err := svc.RevokeLatest(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("revoke on empty ledger: %v", err)
	}
	if revoked != nil {
		t.Fatalf("expected nil record, got %+v", revoked)
	}
	if count != 0 {
		t.Fatalf("expected zero active count, got %d", count)
	}
}

func TestExpiredWarningsLeaveActiveSet(t *testing.T) {
	ledger := &fakeLedger{}
	issued := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(ledger, issued)

	ctx := context.Background()
	if _, _, err := svc.Create(ctx, CreateParams{UserID: 42, ChatID: -100, Reason: "spam"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(DefaultValidity + time.Second) }

	count, err := svc.CountActive(ctx, 42)
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected expired warning to drop out, count=%d", count)
	}

	history, err := svc.ListHistory(ctx, 42)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history must keep expired records, got %d", len(history))
	}
}

func TestStatusLabelRevokedWinsOverExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	revokedAt := now.Add(-time.Hour)

	record := model.WarningRecord{
		IssuedAt:  now.Add(-60 * 24 * time.Hour),
		ExpiresAt: now.Add(-30 * 24 * time.Hour),
		IsRevoked: true,
		RevokedAt: &revokedAt,
	}

	svc := newTestService(&fakeLedger{}, now)
	if got := svc.StatusLabel(record); got != model.WarningStatusRevoked {
		t.Fatalf("expected revoked label, got %s", got)
	}

	record.IsRevoked = false
	if got := svc.StatusLabel(record); got != model.WarningStatusExpired {
		t.Fatalf("expected expired label, got %s", got)
	}

	record.ExpiresAt = now.Add(time.Hour)
	if got := svc.StatusLabel(record); got != model.WarningStatusActive {
		t.Fatalf("expected active label, got %s", got)
	}
}
