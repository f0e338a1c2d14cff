package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pgrepo "github.com/joinua/JR-Foxy/internal/repo/postgres"

	"github.com/joinua/JR-Foxy/internal/domain/enums"
	"github.com/joinua/JR-Foxy/internal/domain/model"
)

// TaskTypeReviewDue is the scheduled-task discriminator for admission review
// reminders.
const TaskTypeReviewDue = "candidate_review_due"

const (
	DefaultReviewDelay   = 3 * time.Hour
	DefaultWaitExtension = 36 * time.Hour
	DefaultInviteTTL     = 24 * time.Hour
)

var ErrNotCandidate = errors.New("user is not an open candidate")

type candidateStore interface {
	UpsertOnJoin(ctx context.Context, userID, receptionChatID int64, reviewDueAt time.Time) error
	Get(ctx context.Context, userID, receptionChatID int64) (model.Candidate, error)
	GetInAnyChat(ctx context.Context, userID int64) (model.Candidate, error)
	Transition(ctx context.Context, userID, receptionChatID int64, params pgrepo.TransitionParams) error
	Postpone(ctx context.Context, userID, receptionChatID int64, newDueAt time.Time) error
	SetButtonsMessage(ctx context.Context, userID, receptionChatID int64, messageID int) error
}

type taskQueue interface {
	Schedule(ctx context.Context, params pgrepo.ScheduleTaskParams) (int64, error)
	CancelPending(ctx context.Context, taskType string, chatID, userID *int64) (int64, error)
}

// Platform is the slice of the messaging platform the admission flow needs.
// All calls are best-effort from the caller's point of view.
type Platform interface {
	CreateInviteLink(ctx context.Context, chatID int64, name string, expireAt time.Time, memberLimit int) (string, error)
	BanChatMember(ctx context.Context, chatID, userID int64) error
	IsChatMember(ctx context.Context, chatID, userID int64) (bool, error)
}

// Notifier renders the admission prompts. Message texts and keyboards stay
// with the caller; the service only decides when they are sent.
type Notifier interface {
	SendDecisionPrompt(ctx context.Context, chatID, candidateID int64) (int, error)
	SendDepartureNotice(ctx context.Context, chatID int64) error
}

type Config struct {
	MainChatID      int64
	ReceptionChatID int64
	ReviewDelay     time.Duration
	WaitExtension   time.Duration
	InviteTTL       time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReviewDelay <= 0 {
		c.ReviewDelay = DefaultReviewDelay
	}
	if c.WaitExtension <= 0 {
		c.WaitExtension = DefaultWaitExtension
	}
	if c.InviteTTL <= 0 {
		c.InviteTTL = DefaultInviteTTL
	}
}

// Service drives the candidate admission state machine. Every time-based
// transition goes through the task queue, never through in-process timers.
type Service struct {
	store    candidateStore
	tasks    taskQueue
	platform Platform
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store candidateStore, tasks taskQueue, platform Platform, notifier Notifier, cfg Config, logger *zap.Logger) *Service {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		tasks:    tasks,
		platform: platform,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterJoin opens (or re-opens) the admission case for a user who entered
// the reception chat and schedules the review reminder. A stale pending
// reminder from an earlier visit is retracted first.
func (s *Service) RegisterJoin(ctx context.Context, userID int64) (time.Time, error) {
	if s.store == nil || s.tasks == nil {
		return time.Time{}, fmt.Errorf("admission service dependencies are not configured")
	}

	reviewDueAt := s.now().UTC().Add(s.cfg.ReviewDelay)

	if err := s.store.UpsertOnJoin(ctx, userID, s.cfg.ReceptionChatID, reviewDueAt); err != nil {
		return time.Time{}, err
	}

	if err := s.retractReminder(ctx, userID); err != nil {
		return time.Time{}, err
	}

	if _, err := s.tasks.Schedule(ctx, pgrepo.ScheduleTaskParams{
		TaskType: TaskTypeReviewDue,
		RunAt:    reviewDueAt,
		ChatID:   &s.cfg.ReceptionChatID,
		UserID:   &userID,
	}); err != nil {
		return time.Time{}, err
	}

	return reviewDueAt, nil
}

// Get returns the open candidate row or ErrNotCandidate if the user has no
// row or the row is past the candidate stage.
func (s *Service) Get(ctx context.Context, userID int64) (model.Candidate, error) {
	if s.store == nil {
		return model.Candidate{}, fmt.Errorf("admission service dependencies are not configured")
	}

	candidate, err := s.store.Get(ctx, userID, s.cfg.ReceptionChatID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCandidateNotFound) {
			return model.Candidate{}, ErrNotCandidate
		}
		return model.Candidate{}, err
	}
	if candidate.Status != enums.CandidateStatusCandidate {
		return model.Candidate{}, ErrNotCandidate
	}

	return candidate, nil
}

// Accept creates a single-use invite link into the main chat and moves the
// candidate to "invited". The reminder task is retracted: the human decision
// supersedes it.
func (s *Service) Accept(ctx context.Context, userID, reviewerID int64) (string, error) {
	if s.platform == nil {
		return "", fmt.Errorf("admission service dependencies are not configured")
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return "", err
	}

	reviewedAt := s.now().UTC()
	linkName := "candidate-" + uuid.NewString()

	inviteLink, err := s.platform.CreateInviteLink(ctx, s.cfg.MainChatID, linkName, reviewedAt.Add(s.cfg.InviteTTL), 1)
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}

	if err := s.store.Transition(ctx, userID, s.cfg.ReceptionChatID, pgrepo.TransitionParams{
		Status:     enums.CandidateStatusInvited,
		ReviewedBy: &reviewerID,
		ReviewedAt: &reviewedAt,
		InviteLink: &inviteLink,
	}); err != nil {
		return "", err
	}

	if err := s.retractReminder(ctx, userID); err != nil {
		return "", err
	}

	return inviteLink, nil
}

// Reject bans the candidate in the reception chat and closes the case.
func (s *Service) Reject(ctx context.Context, userID, reviewerID int64) error {
	if s.platform == nil {
		return fmt.Errorf("admission service dependencies are not configured")
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}

	if err := s.platform.BanChatMember(ctx, s.cfg.ReceptionChatID, userID); err != nil {
		return fmt.Errorf("ban rejected candidate: %w", err)
	}

	reviewedAt := s.now().UTC()
	if err := s.store.Transition(ctx, userID, s.cfg.ReceptionChatID, pgrepo.TransitionParams{
		Status:     enums.CandidateStatusKicked,
		ReviewedBy: &reviewerID,
		ReviewedAt: &reviewedAt,
	}); err != nil {
		return err
	}

	return s.retractReminder(ctx, userID)
}

// Wait postpones the decision: the row stays "candidate", the wait counter is
// bumped, and the reminder is re-enqueued at the new deadline.
func (s *Service) Wait(ctx context.Context, userID int64) (time.Time, error) {
	if s.store == nil || s.tasks == nil {
		return time.Time{}, fmt.Errorf("admission service dependencies are not configured")
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return time.Time{}, err
	}

	newDueAt := s.now().UTC().Add(s.cfg.WaitExtension)

	if err := s.store.Postpone(ctx, userID, s.cfg.ReceptionChatID, newDueAt); err != nil {
		return time.Time{}, err
	}

	if err := s.retractReminder(ctx, userID); err != nil {
		return time.Time{}, err
	}

	if _, err := s.tasks.Schedule(ctx, pgrepo.ScheduleTaskParams{
		TaskType: TaskTypeReviewDue,
		RunAt:    newDueAt,
		ChatID:   &s.cfg.ReceptionChatID,
		UserID:   &userID,
	}); err != nil {
		return time.Time{}, err
	}

	return newDueAt, nil
}

// ConfirmMainChatJoin finalizes the workflow once the subject shows up in the
// main chat: the case becomes "accepted" and the reception chat is swept.
// Returns false when the joining user has no open admission case.
func (s *Service) ConfirmMainChatJoin(ctx context.Context, userID int64) (bool, error) {
	if s.store == nil || s.tasks == nil || s.platform == nil {
		return false, fmt.Errorf("admission service dependencies are not configured")
	}

	candidate, err := s.store.GetInAnyChat(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCandidateNotFound) {
			return false, nil
		}
		return false, err
	}

	if candidate.Status.Terminal() {
		return false, nil
	}

	if err := s.store.Transition(ctx, userID, candidate.ReceptionChatID, pgrepo.TransitionParams{
		Status: enums.CandidateStatusAccepted,
	}); err != nil {
		return false, err
	}

	if _, err := s.tasks.CancelPending(ctx, TaskTypeReviewDue, &candidate.ReceptionChatID, &userID); err != nil {
		return false, err
	}

	// Best effort: the member now lives in the main chat, the reception row
	// is just housekeeping.
	if err := s.platform.BanChatMember(ctx, candidate.ReceptionChatID, userID); err != nil {
		s.logger.Warn("failed to sweep accepted candidate from reception",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int64("chat_id", candidate.ReceptionChatID))
	}

	return true, nil
}

// RecordPrompt remembers the decision-buttons message so a forced re-review
// replaces the prompt instead of duplicating it.
func (s *Service) RecordPrompt(ctx context.Context, userID int64, messageID int) error {
	if s.store == nil {
		return fmt.Errorf("admission service dependencies are not configured")
	}

	return s.store.SetButtonsMessage(ctx, userID, s.cfg.ReceptionChatID, messageID)
}

// RetractReminder cancels the pending review task, used when a manual prompt
// supersedes the scheduled one.
func (s *Service) RetractReminder(ctx context.Context, userID int64) error {
	return s.retractReminder(ctx, userID)
}

// HandleReviewDue is the scheduler handler for review reminders. It
// re-validates the case, checks the subject is still around, and either
// renders the decision prompt or posts a departure notice. A candidate who
// left keeps the row open so a later re-join resumes the workflow.
func (s *Service) HandleReviewDue(ctx context.Context, task model.ScheduledTask) error {
	if s.notifier == nil || s.platform == nil {
		return fmt.Errorf("admission service dependencies are not configured")
	}
	if task.UserID == nil {
		return fmt.Errorf("review task %d has no user correlation", task.ID)
	}

	userID := *task.UserID
	chatID := s.cfg.ReceptionChatID
	if task.ChatID != nil {
		chatID = *task.ChatID
	}

	candidate, err := s.store.Get(ctx, userID, chatID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCandidateNotFound) {
			return nil
		}
		return err
	}
	if candidate.Status != enums.CandidateStatusCandidate {
		return nil
	}

	present, err := s.platform.IsChatMember(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("resolve candidate membership: %w", err)
	}

	if !present {
		return s.notifier.SendDepartureNotice(ctx, chatID)
	}

	messageID, err := s.notifier.SendDecisionPrompt(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("send decision prompt: %w", err)
	}

	return s.store.SetButtonsMessage(ctx, userID, chatID, messageID)
}

func (s *Service) retractReminder(ctx context.Context, userID int64) error {
	if _, err := s.tasks.CancelPending(ctx, TaskTypeReviewDue, &s.cfg.ReceptionChatID, &userID); err != nil {
		return err
	}
	return nil
}
