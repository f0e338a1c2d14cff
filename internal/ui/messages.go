package ui

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/joinua/JR-Foxy/internal/domain/model"
)

// Fixed bot texts. The clan speaks Ukrainian, so do we.
const (
	ReceptionWelcomeText = "Привіт! Цей чат - місце нашого першого знайомства з адміністрацією клану. " +
		"Як тільки хтось з адміністрації звільниться - ви поспілкуєтеся, а поки напиши нам: звідки ти, " +
		"скільки років, в якому клані був до і як дізнався про нас."

	NewCandidateLogText = "Долучився новий кандидат в чат Приймальні. Через 3 год з'являться кнопки дії " +
		"або /candidate у реплай, щоб скоріше прийняти. Кнопка почекати - дасть ще 36 годин очікування. " +
		"Поспілкуйтеся з ним"

	ReviewButtonsText = "Настав час адміністрації прийняти рішення щодо кандидата. Натисніть на одну з трьох " +
		"кнопок: Прийняти - якщо кандидат відповідає всім вимогам, Чекати - дати додатково 36 годин " +
		"на виконання умов, Відмовити - якщо кандидат не відповідає вимогам клану."

	WaitDoneText = "Рішення щодо кандидата відкладено на 36 годин. За цей час кандидат повинен " +
		"виконати вимоги, поставлені адміністрацією."

	LeftReceptionText = "Не дочекавшись свого зіркового часу - прибульці полетіли далі"

	NoActiveWarningsText  = "Немає активних попереджень для зняття."
	NoTargetText          = "Вкажи користувача або відповідай на його повідомлення."
	TargetNotFoundText    = "Не вдалося знайти користувача."
	NoReasonText          = "Вкажи причину попередження."
	SelfTargetText        = "На себе попередження не виписують."
	BotTargetText         = "Боти поза юрисдикцією клану."
	NotEnoughLevelText    = "Недостатній рівень."
	NotCandidateText      = "Немає тіла, немає діла! Кандидат уже не кандидат."
	ReplyToCandidateText  = "Надішліть команду у відповідь на повідомлення кандидата"
	InviteFailedText      = "Не маю права створити інвайт-лінк у головний чат. Допоможіть!"
	KickFailedText        = "Не можу кікати людей. Виправіть додатковими дозволами"
	MyWarnsEmptyText      = "У тебе немає ні попереджень, ні совісті дарма мене турбувати!"
	WrongChatText         = "Я не пристосована до цього чату. Я належу тільки клану JokerRecon."
	WarningsHistoryHeader = "Повна історія:"
)

var ukMonths = map[time.Month]string{
	time.January:   "січня",
	time.February:  "лютого",
	time.March:     "березня",
	time.April:     "квітня",
	time.May:       "травня",
	time.June:      "червня",
	time.July:      "липня",
	time.August:    "серпня",
	time.September: "вересня",
	time.October:   "жовтня",
	time.November:  "листопада",
	time.December:  "грудня",
}

// FormatDate renders a Ukrainian date for user-facing messages.
func FormatDate(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d %s %d року", t.Day(), ukMonths[t.Month()], t.Year())
}

// Mention builds a clickable HTML mention that survives username changes: it
// links by user id and shows the display name we have at hand.
func Mention(userID int64, displayName string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = fmt.Sprintf("%d", userID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(name))
}

// DisplayName joins the profile name parts, falling back to the id.
func DisplayName(firstName, lastName string, userID int64) string {
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if name == "" {
		return fmt.Sprintf("%d", userID)
	}
	return name
}

func statusLabel(status model.WarningStatus) string {
	switch status {
	case model.WarningStatusRevoked:
		return "скасовано"
	case model.WarningStatusExpired:
		return "прострочено"
	default:
		return "активне"
	}
}

// WarningIssued composes the public announcement for a fresh warning.
func WarningIssued(subjectMention, issuerMention, reason string, expiresAt time.Time) string {
	return strings.Join([]string{
		fmt.Sprintf("Учасник клану %s - отримав попередження!", subjectMention),
		fmt.Sprintf("Адміністратор, що виніс попередження: %s", issuerMention),
		fmt.Sprintf("Причина: %s", html.EscapeString(reason)),
		fmt.Sprintf("Діє до: %s", FormatDate(expiresAt)),
	}, "\n")
}

// WarningRevoked composes the unwarn confirmation.
func WarningRevoked(subjectMention string) string {
	return fmt.Sprintf("Знято останнє активне попередження з %s.", subjectMention)
}

// WarningsReport composes the /winfo report sent to the admin-log chat.
func WarningsReport(subjectMention string, active, history []model.WarningRecord, now time.Time) string {
	lines := []string{fmt.Sprintf("Попередження для %s:", subjectMention)}

	if len(active) > 0 {
		lines = append(lines, fmt.Sprintf("Активні попередження: %d", len(active)))
		for _, record := range active {
			lines = append(lines, fmt.Sprintf("- %s > %s", FormatDate(record.IssuedAt), html.EscapeString(record.Reason)))
		}
	} else {
		lines = append(lines, "Активних попереджень немає.")
	}

	if len(history) > 0 {
		lines = append(lines, WarningsHistoryHeader)
		for _, record := range history {
			lines = append(lines, fmt.Sprintf(
				"- %s > %s (%s)",
				FormatDate(record.IssuedAt),
				html.EscapeString(record.Reason),
				statusLabel(record.StatusAt(now)),
			))
		}
	} else {
		lines = append(lines, "Історія попереджень порожня.")
	}

	return strings.Join(lines, "\n")
}

// MyWarns composes the self-service summary.
func MyWarns(active []model.WarningRecord) string {
	if len(active) == 0 {
		return MyWarnsEmptyText
	}

	latest := active[0].ExpiresAt
	for _, record := range active[1:] {
		if record.ExpiresAt.After(latest) {
			latest = record.ExpiresAt
		}
	}

	return strings.Join([]string{
		fmt.Sprintf("Активних попереджень: %d", len(active)),
		fmt.Sprintf("Найсвіжіше діє до: %s", FormatDate(latest)),
	}, "\n")
}

// CandidateAccepted announces a successful admission decision.
func CandidateAccepted(reviewerMention string) string {
	return fmt.Sprintf(
		"Кандидат офіційно стає учасником клану! Адміністратор %s прийняв кандидата. Посилання на чат готове!",
		reviewerMention,
	)
}

// CandidateInvitePersonal addresses the invite link to the candidate.
func CandidateInvitePersonal(candidateMention string) string {
	return fmt.Sprintf("%s, ось твоє посилання на наш офіційний чат.", candidateMention)
}

// CandidateAcceptedLog composes the admin-log record of an accept decision.
func CandidateAcceptedLog(reviewerMention, candidateLabel string) string {
	return fmt.Sprintf("Адміністратор %s прийняв в клан %s", reviewerMention, candidateLabel)
}

// CandidateRejectedLog composes the admin-log record of a reject decision.
func CandidateRejectedLog(reviewerMention string, candidateID int64) string {
	return fmt.Sprintf("Адміністратор %s відмовив кандидату та кікнув користувача %d", reviewerMention, candidateID)
}
