package model

import "time"

// WarningRecord is one row of the disciplinary ledger. Rows are never deleted;
// the only mutation a record ever sees is a one-time revocation.
type WarningRecord struct {
	ID            int64
	UserID        int64
	ChatID        int64
	Reason        string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	IssuedBy      int64
	IssuedByLevel int
	SubjectName   string
	IssuerName    string
	IsRevoked     bool
	RevokedAt     *time.Time
	RevokedBy     *int64
}

type WarningStatus string

const (
	WarningStatusActive  WarningStatus = "active"
	WarningStatusExpired WarningStatus = "expired"
	WarningStatusRevoked WarningStatus = "revoked"
)

// ActiveAt is the single definition of the "active" predicate. The count of
// active warnings is always derived from it, never stored.
func (w WarningRecord) ActiveAt(now time.Time) bool {
	return !w.IsRevoked && w.ExpiresAt.After(now)
}

// StatusAt labels the record for display. Revocation wins over expiry.
func (w WarningRecord) StatusAt(now time.Time) WarningStatus {
	if w.IsRevoked {
		return WarningStatusRevoked
	}
	if !w.ExpiresAt.After(now) {
		return WarningStatusExpired
	}
	return WarningStatusActive
}
