package model

import (
	"time"

	"github.com/joinua/JR-Foxy/internal/domain/enums"
)

// Candidate is the admission record for a (user, reception chat) pair.
// Re-joining the reception chat resets the row back to "candidate".
type Candidate struct {
	UserID           int64
	ReceptionChatID  int64
	Status           enums.CandidateStatus
	CreatedAt        time.Time
	ReviewDueAt      time.Time
	WaitCount        int
	ButtonsMessageID *int
	ReviewedBy       *int64
	ReviewedAt       *time.Time
	InviteLink       *string
}
