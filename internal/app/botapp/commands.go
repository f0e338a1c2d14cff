package botapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	tginfra "github.com/joinua/JR-Foxy/internal/infra/telegram"
	accesssvc "github.com/joinua/JR-Foxy/internal/services/access"
	admissionsvc "github.com/joinua/JR-Foxy/internal/services/admission"
	"github.com/joinua/JR-Foxy/internal/services/escalation"
	warningssvc "github.com/joinua/JR-Foxy/internal/services/warnings"
	"github.com/joinua/JR-Foxy/internal/ui"
)

const (
	warnPrefix   = "!warn"
	unwarnPrefix = "!unwarn"
)

// handleText routes the bang-prefixed moderation commands. Everything else in
// group chats is none of our business.
func (a *App) handleText(ctx context.Context, update tginfra.TextUpdate) error {
	switch {
	case hasCommandPrefix(update.Text, unwarnPrefix):
		return a.handleUnwarn(ctx, update)
	case hasCommandPrefix(update.Text, warnPrefix):
		return a.handleWarn(ctx, update)
	default:
		return nil
	}
}

// hasCommandPrefix matches the command word exactly: "!warn spam" and a bare
// "!warn" count, "!warning" does not.
func hasCommandPrefix(text, prefix string) bool {
	if !strings.HasPrefix(text, prefix) {
		return false
	}
	rest := text[len(prefix):]
	return rest == "" || strings.HasPrefix(rest, " ")
}

func (a *App) handleWarn(ctx context.Context, update tginfra.TextUpdate) error {
	level, err := a.access.GetLevel(ctx, update.UserID)
	if err != nil {
		return err
	}
	if level < accesssvc.LevelModerator {
		return a.bot.SendText(ctx, update.ChatID, ui.NotEnoughLevelText)
	}

	target := update.ReplyTo
	if target == nil {
		return a.bot.SendText(ctx, update.ChatID, ui.NoTargetText)
	}
	if target.IsBot {
		return a.bot.SendText(ctx, update.ChatID, ui.BotTargetText)
	}
	if target.UserID == update.UserID {
		return a.bot.SendText(ctx, update.ChatID, ui.SelfTargetText)
	}

	reason := strings.TrimSpace(strings.TrimPrefix(update.Text, warnPrefix))
	subjectName := ui.DisplayName(target.FirstName, target.LastName, target.UserID)
	issuerName := ui.DisplayName(update.FirstName, update.LastName, update.UserID)

	record, count, err := a.warnings.Create(ctx, warningssvc.CreateParams{
		UserID:        target.UserID,
		ChatID:        update.ChatID,
		Reason:        reason,
		IssuedBy:      update.UserID,
		IssuedByLevel: level,
		SubjectName:   subjectName,
		IssuerName:    issuerName,
	})
	if err != nil {
		if errors.Is(err, warningssvc.ErrEmptyReason) {
			return a.bot.SendText(ctx, update.ChatID, ui.NoReasonText)
		}
		return err
	}

	announcement := ui.WarningIssued(
		ui.Mention(target.UserID, subjectName),
		ui.Mention(update.UserID, issuerName),
		record.Reason,
		record.ExpiresAt,
	)
	if _, err := a.bot.SendHTML(ctx, update.ChatID, announcement); err != nil {
		return err
	}

	if a.policy.Decide(count) == escalation.ActionExclude {
		return a.excludeWarned(ctx, update.ChatID, target.UserID, subjectName, count)
	}

	return nil
}

// excludeWarned performs the threshold ban. The ledger stays append-only: the
// ban is a side effect, not a ledger mutation, and is never undone by the bot.
func (a *App) excludeWarned(ctx context.Context, chatID, userID int64, subjectName string, count int) error {
	if err := a.bot.BanChatMember(ctx, chatID, userID); err != nil {
		a.logger.Warn("failed to ban user over warning threshold",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int64("chat_id", chatID))
		return a.bot.SendText(ctx, chatID, ui.KickFailedText)
	}

	mention := ui.Mention(userID, subjectName)
	notice := fmt.Sprintf("%s набрав %d активних попереджень і виключається з клану.", mention, count)
	if _, err := a.bot.SendHTML(ctx, chatID, notice); err != nil {
		return err
	}

	a.adminLog(ctx, fmt.Sprintf("Користувача %s забанено за %d попереджень.", mention, count))
	return nil
}

func (a *App) handleUnwarn(ctx context.Context, update tginfra.TextUpdate) error {
	level, err := a.access.GetLevel(ctx, update.UserID)
	if err != nil {
		return err
	}
	if level < accesssvc.LevelModerator {
		return a.bot.SendText(ctx, update.ChatID, ui.NotEnoughLevelText)
	}

	target := update.ReplyTo
	if target == nil {
		return a.bot.SendText(ctx, update.ChatID, ui.NoTargetText)
	}

	record, _, err := a.warnings.RevokeLatest(ctx, target.UserID, update.UserID)
	if err != nil {
		return err
	}
	if record == nil {
		return a.bot.SendText(ctx, update.ChatID, ui.NoActiveWarningsText)
	}

	mention := ui.Mention(target.UserID, ui.DisplayName(target.FirstName, target.LastName, target.UserID))
	_, err = a.bot.SendHTML(ctx, update.ChatID, ui.WarningRevoked(mention))
	return err
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "winfo":
		return a.handleWinfo(ctx, update)
	case "mywarns":
		return a.handleMyWarns(ctx, update)
	case "candidate":
		return a.handleForceReview(ctx, update)
	case "unban":
		return a.handleUnban(ctx, update)
	case "myid":
		return a.bot.SendText(ctx, update.ChatID, strconv.FormatInt(update.UserID, 10))
	case "adda":
		return a.handleAddAdmin(ctx, update)
	case "alvl":
		return a.handleSetAdminLevel(ctx, update)
	case "dela":
		return a.handleRemoveAdmin(ctx, update)
	case "admlist":
		return a.handleAdminList(ctx, update)
	default:
		return nil
	}
}

// handleUnban lifts an exclusion. Deliberately manual: dropping below the
// warning threshold never unbans anyone, a moderator has to.
func (a *App) handleUnban(ctx context.Context, update tginfra.CommandUpdate) error {
	level, err := a.access.GetLevel(ctx, update.UserID)
	if err != nil {
		return err
	}
	if level < accesssvc.LevelModerator {
		return a.bot.SendText(ctx, update.ChatID, ui.NotEnoughLevelText)
	}

	targetID, targetName, ok := commandTarget(update)
	if !ok {
		return a.bot.SendText(ctx, update.ChatID, ui.NoTargetText)
	}

	if err := a.bot.UnbanChatMember(ctx, update.ChatID, targetID); err != nil {
		a.logger.Warn("failed to lift exclusion", zap.Error(err),
			zap.Int64("user_id", targetID), zap.Int64("chat_id", update.ChatID))
		return a.bot.SendText(ctx, update.ChatID, ui.KickFailedText)
	}

	mention := ui.Mention(targetID, targetName)
	a.adminLog(ctx, fmt.Sprintf("Бан знято з %s модератором %d.", mention, update.UserID))
	_, err = a.bot.SendHTML(ctx, update.ChatID, fmt.Sprintf("Бан знято з %s.", mention))
	return err
}

func (a *App) handleWinfo(ctx context.Context, update tginfra.CommandUpdate) error {
	level, err := a.access.GetLevel(ctx, update.UserID)
	if err != nil {
		return err
	}
	if level < accesssvc.LevelObserver {
		return a.bot.SendText(ctx, update.ChatID, ui.NotEnoughLevelText)
	}

	targetID, targetName, ok := commandTarget(update)
	if !ok {
		return a.bot.SendText(ctx, update.ChatID, ui.NoTargetText)
	}

	active, err := a.warnings.ListActive(ctx, targetID)
	if err != nil {
		return err
	}
	history, err := a.warnings.ListHistory(ctx, targetID)
	if err != nil {
		return err
	}

	report := ui.WarningsReport(ui.Mention(targetID, targetName), active, history, a.nowUTC())

	// The full dossier goes to the admin-log chat, not the public one.
	destChat := a.cfg.Bot.AdminLogChatID
	if destChat == 0 {
		destChat = update.ChatID
	}
	_, err = a.bot.SendHTML(ctx, destChat, report)
	return err
}

func (a *App) handleMyWarns(ctx context.Context, update tginfra.CommandUpdate) error {
	active, err := a.warnings.ListActive(ctx, update.UserID)
	if err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, ui.MyWarns(active))
}

// handleForceReview lets a reviewer pull the decision prompt forward instead
// of waiting out the scheduled reminder.
func (a *App) handleForceReview(ctx context.Context, update tginfra.CommandUpdate) error {
	level, err := a.access.GetLevel(ctx, update.UserID)
	if err != nil {
		return err
	}
	if level < accesssvc.LevelReviewer {
		return a.bot.SendText(ctx, update.ChatID, ui.NotEnoughLevelText)
	}

	if update.ReplyTo == nil {
		return a.bot.SendText(ctx, update.ChatID, ui.ReplyToCandidateText)
	}
	candidateID := update.ReplyTo.UserID

	candidate, err := a.admission.Get(ctx, candidateID)
	if err != nil {
		if errors.Is(err, admissionsvc.ErrNotCandidate) {
			return a.bot.SendText(ctx, update.ChatID, ui.NotCandidateText)
		}
		return err
	}

	if err := a.admission.RetractReminder(ctx, candidateID); err != nil {
		return err
	}

	// Replace a previously rendered prompt instead of stacking a second one.
	if candidate.ButtonsMessageID != nil {
		if err := a.bot.DeleteMessage(ctx, a.cfg.Bot.ReceptionChatID, *candidate.ButtonsMessageID); err != nil {
			a.logger.Warn("failed to remove stale decision prompt", zap.Error(err),
				zap.Int64("candidate_id", candidateID))
		}
	}

	notifier := &promptNotifier{app: a}
	messageID, err := notifier.SendDecisionPrompt(ctx, a.cfg.Bot.ReceptionChatID, candidateID)
	if err != nil {
		return err
	}

	return a.admission.RecordPrompt(ctx, candidateID, messageID)
}

func (a *App) handleAddAdmin(ctx context.Context, update tginfra.CommandUpdate) error {
	if ok, err := a.requireOwner(ctx, update); err != nil || !ok {
		return err
	}

	target := update.ReplyTo
	if target == nil {
		return a.bot.SendText(ctx, update.ChatID, ui.NoTargetText)
	}

	if err := a.access.Add(ctx, target.UserID, target.FirstName, target.LastName, target.Username); err != nil {
		return err
	}

	mention := ui.Mention(target.UserID, ui.DisplayName(target.FirstName, target.LastName, target.UserID))
	_, err := a.bot.SendHTML(ctx, update.ChatID, fmt.Sprintf("Додано адміністратора %s з рівнем 1.", mention))
	return err
}

func (a *App) handleSetAdminLevel(ctx context.Context, update tginfra.CommandUpdate) error {
	if ok, err := a.requireOwner(ctx, update); err != nil || !ok {
		return err
	}

	targetID, level, err := parseLevelArgs(update)
	if err != nil {
		return a.bot.SendText(ctx, update.ChatID, "Формат: /alvl <рівень 1-4> у реплай, або /alvl <user_id> <рівень>.")
	}

	updated, err := a.access.SetLevel(ctx, targetID, level)
	if err != nil {
		return a.bot.SendText(ctx, update.ChatID, "Рівень має бути від 1 до 4.")
	}
	if !updated {
		return a.bot.SendText(ctx, update.ChatID, ui.TargetNotFoundText)
	}

	return a.bot.SendText(ctx, update.ChatID, fmt.Sprintf("Рівень користувача %d тепер %d.", targetID, level))
}

func (a *App) handleRemoveAdmin(ctx context.Context, update tginfra.CommandUpdate) error {
	if ok, err := a.requireOwner(ctx, update); err != nil || !ok {
		return err
	}

	targetID, _, ok := commandTarget(update)
	if !ok {
		return a.bot.SendText(ctx, update.ChatID, ui.NoTargetText)
	}

	deleted, err := a.access.Remove(ctx, targetID)
	if err != nil {
		return err
	}
	if !deleted {
		return a.bot.SendText(ctx, update.ChatID, ui.TargetNotFoundText)
	}

	return a.bot.SendText(ctx, update.ChatID, fmt.Sprintf("Користувача %d вилучено зі списку адміністрації.", targetID))
}

func (a *App) handleAdminList(ctx context.Context, update tginfra.CommandUpdate) error {
	if ok, err := a.requireOwner(ctx, update); err != nil || !ok {
		return err
	}

	admins, err := a.access.List(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		return a.bot.SendText(ctx, update.ChatID, "Список адміністрації порожній.")
	}

	lines := []string{"Адміністрація клану:"}
	for _, admin := range admins {
		name := ui.DisplayName(admin.FirstName, admin.LastName, admin.UserID)
		lines = append(lines, fmt.Sprintf("- %s, рівень %d", ui.Mention(admin.UserID, name), admin.Level))
	}

	_, err = a.bot.SendHTML(ctx, update.ChatID, strings.Join(lines, "\n"))
	return err
}

func (a *App) requireOwner(ctx context.Context, update tginfra.CommandUpdate) (bool, error) {
	level, err := a.access.GetLevel(ctx, update.UserID)
	if err != nil {
		return false, err
	}
	if level < accesssvc.LevelOwner {
		return false, a.bot.SendText(ctx, update.ChatID, ui.NotEnoughLevelText)
	}
	return true, nil
}

// commandTarget resolves who a roster or info command is about: the replied-to
// author wins, otherwise a numeric id from the arguments.
func commandTarget(update tginfra.CommandUpdate) (int64, string, bool) {
	if update.ReplyTo != nil {
		t := update.ReplyTo
		return t.UserID, ui.DisplayName(t.FirstName, t.LastName, t.UserID), true
	}

	fields := strings.Fields(update.Args)
	if len(fields) == 0 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}
	return id, "", true
}

// parseLevelArgs reads "/alvl <level>" in a reply, or "/alvl <user_id> <level>".
func parseLevelArgs(update tginfra.CommandUpdate) (int64, int, error) {
	fields := strings.Fields(update.Args)

	if update.ReplyTo != nil {
		if len(fields) != 1 {
			return 0, 0, fmt.Errorf("expected a single level argument")
		}
		level, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, 0, fmt.Errorf("parse level: %w", err)
		}
		return update.ReplyTo.UserID, level, nil
	}

	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected user id and level")
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id == 0 {
		return 0, 0, fmt.Errorf("parse user id: %w", err)
	}
	level, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse level: %w", err)
	}
	return id, level, nil
}
