package botapp

import (
	"context"

	"go.uber.org/zap"

	tginfra "github.com/joinua/JR-Foxy/internal/infra/telegram"
	"github.com/joinua/JR-Foxy/internal/ui"
)

func (a *App) handleNewMember(ctx context.Context, update tginfra.MemberUpdate) error {
	switch update.ChatID {
	case a.cfg.Bot.ReceptionChatID:
		return a.handleReceptionJoin(ctx, update)
	case a.cfg.Bot.MainChatID:
		return a.handleMainChatJoin(ctx, update)
	default:
		return a.guardChat(ctx, update)
	}
}

func (a *App) handleReceptionJoin(ctx context.Context, update tginfra.MemberUpdate) error {
	if update.IsBot {
		return nil
	}

	dueAt, err := a.admission.RegisterJoin(ctx, update.UserID)
	if err != nil {
		return err
	}

	a.logger.Info("candidate registered",
		zap.Int64("user_id", update.UserID), zap.Time("review_due_at", dueAt))

	name := ui.DisplayName(update.FirstName, update.LastName, update.UserID)
	welcome := ui.Mention(update.UserID, name) + "\n\n" + ui.ReceptionWelcomeText
	if _, err := a.bot.SendHTML(ctx, update.ChatID, welcome); err != nil {
		return err
	}

	a.adminLog(ctx, ui.NewCandidateLogText)
	return nil
}

func (a *App) handleMainChatJoin(ctx context.Context, update tginfra.MemberUpdate) error {
	if update.IsBot {
		return nil
	}

	confirmed, err := a.admission.ConfirmMainChatJoin(ctx, update.UserID)
	if err != nil {
		return err
	}
	if confirmed {
		name := ui.DisplayName(update.FirstName, update.LastName, update.UserID)
		a.adminLog(ctx, "Кандидат "+ui.Mention(update.UserID, name)+" приєднався до головного чату.")
	}

	return nil
}

// guardChat makes the bot walk out of chats it was dragged into. Only fires
// when the new member is the bot itself.
func (a *App) guardChat(ctx context.Context, update tginfra.MemberUpdate) error {
	if update.UserID != a.bot.BotID() {
		return nil
	}
	if a.cfg.Bot.ChatAllowed(update.ChatID) {
		return nil
	}

	a.logger.Info("leaving non-allowlisted chat", zap.Int64("chat_id", update.ChatID))

	if err := a.bot.SendText(ctx, update.ChatID, ui.WrongChatText); err != nil {
		a.logger.Warn("failed to announce departure", zap.Error(err), zap.Int64("chat_id", update.ChatID))
	}
	return a.bot.LeaveChat(ctx, update.ChatID)
}

// handleLeftMember only observes: a departed candidate keeps an open case so a
// later re-join resumes it, and the review reminder reports the absence.
func (a *App) handleLeftMember(ctx context.Context, update tginfra.MemberUpdate) error {
	if update.ChatID != a.cfg.Bot.ReceptionChatID || update.IsBot {
		return nil
	}

	a.logger.Info("candidate left reception chat", zap.Int64("user_id", update.UserID))
	_ = ctx
	return nil
}
