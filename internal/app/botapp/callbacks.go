package botapp

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	tginfra "github.com/joinua/JR-Foxy/internal/infra/telegram"
	accesssvc "github.com/joinua/JR-Foxy/internal/services/access"
	admissionsvc "github.com/joinua/JR-Foxy/internal/services/admission"
	"github.com/joinua/JR-Foxy/internal/ui"
)

// handleCallback routes the admission decision buttons. Callback data looks
// like "inv:<action>:<candidate_id>".
func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	parts := strings.Split(strings.TrimSpace(update.Data), ":")
	if len(parts) != 3 || parts[0] != "inv" {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "")
	}

	candidateID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || candidateID == 0 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "")
	}

	level, err := a.access.GetLevel(ctx, update.UserID)
	if err != nil {
		return err
	}
	if level < accesssvc.LevelReviewer {
		return a.bot.AnswerCallback(ctx, update.CallbackID, ui.NotEnoughLevelText)
	}

	switch parts[1] {
	case "accept":
		return a.acceptCandidate(ctx, update, candidateID)
	case "wait":
		return a.postponeCandidate(ctx, update, candidateID)
	case "reject":
		return a.rejectCandidate(ctx, update, candidateID)
	default:
		return a.bot.AnswerCallback(ctx, update.CallbackID, "")
	}
}

func (a *App) acceptCandidate(ctx context.Context, update tginfra.CallbackUpdate, candidateID int64) error {
	inviteLink, err := a.admission.Accept(ctx, candidateID, update.UserID)
	if err != nil {
		if errors.Is(err, admissionsvc.ErrNotCandidate) {
			return a.bot.AnswerCallback(ctx, update.CallbackID, ui.NotCandidateText)
		}
		a.logger.Warn("candidate accept failed", zap.Error(err), zap.Int64("candidate_id", candidateID))
		if cbErr := a.bot.AnswerCallback(ctx, update.CallbackID, ""); cbErr != nil {
			return cbErr
		}
		return a.bot.SendText(ctx, update.ChatID, ui.InviteFailedText)
	}

	reviewerMention := ui.Mention(update.UserID, ui.DisplayName(update.FirstName, update.LastName, update.UserID))
	a.replacePrompt(ctx, update, ui.CandidateAccepted(reviewerMention))

	personal := ui.CandidateInvitePersonal(ui.Mention(candidateID, "")) + "\n" + inviteLink
	if _, err := a.bot.SendHTML(ctx, update.ChatID, personal); err != nil {
		return err
	}

	a.adminLog(ctx, ui.CandidateAcceptedLog(reviewerMention, ui.Mention(candidateID, "")))
	return a.bot.AnswerCallback(ctx, update.CallbackID, "")
}

func (a *App) postponeCandidate(ctx context.Context, update tginfra.CallbackUpdate, candidateID int64) error {
	if _, err := a.admission.Wait(ctx, candidateID); err != nil {
		if errors.Is(err, admissionsvc.ErrNotCandidate) {
			return a.bot.AnswerCallback(ctx, update.CallbackID, ui.NotCandidateText)
		}
		return err
	}

	a.replacePrompt(ctx, update, ui.WaitDoneText)
	return a.bot.AnswerCallback(ctx, update.CallbackID, "")
}

func (a *App) rejectCandidate(ctx context.Context, update tginfra.CallbackUpdate, candidateID int64) error {
	if err := a.admission.Reject(ctx, candidateID, update.UserID); err != nil {
		if errors.Is(err, admissionsvc.ErrNotCandidate) {
			return a.bot.AnswerCallback(ctx, update.CallbackID, ui.NotCandidateText)
		}
		a.logger.Warn("candidate reject failed", zap.Error(err), zap.Int64("candidate_id", candidateID))
		if cbErr := a.bot.AnswerCallback(ctx, update.CallbackID, ""); cbErr != nil {
			return cbErr
		}
		return a.bot.SendText(ctx, update.ChatID, ui.KickFailedText)
	}

	reviewerMention := ui.Mention(update.UserID, ui.DisplayName(update.FirstName, update.LastName, update.UserID))
	a.replacePrompt(ctx, update, "Кандидату відмовлено.")
	a.adminLog(ctx, ui.CandidateRejectedLog(reviewerMention, candidateID))

	return a.bot.AnswerCallback(ctx, update.CallbackID, "")
}

// replacePrompt swaps the decision-buttons message for the outcome text so the
// buttons cannot be pressed twice. Best effort: the prompt may already be gone.
func (a *App) replacePrompt(ctx context.Context, update tginfra.CallbackUpdate, text string) {
	if update.ChatID == 0 || update.MessageID == 0 {
		return
	}
	if err := a.bot.EditMessageText(ctx, update.ChatID, update.MessageID, text); err != nil {
		a.logger.Warn("failed to replace decision prompt", zap.Error(err),
			zap.Int64("chat_id", update.ChatID), zap.Int("message_id", update.MessageID))
	}
}
