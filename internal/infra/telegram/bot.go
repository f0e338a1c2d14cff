package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	api *tgbotapi.BotAPI
}

// ReplyRef carries the author of the message a command replied to.
type ReplyRef struct {
	UserID    int64
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
}

type CommandUpdate struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	MessageID int
	Command   string
	Args      string
	ReplyTo   *ReplyRef
}

type TextUpdate struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	MessageID int
	Text      string
	ReplyTo   *ReplyRef
}

type CallbackUpdate struct {
	CallbackID string
	ChatID     int64
	MessageID  int
	UserID     int64
	Username   string
	FirstName  string
	LastName   string
	Data       string
}

// MemberUpdate reports one user joining or leaving a chat.
type MemberUpdate struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
}

type Handlers struct {
	OnCommand    func(context.Context, CommandUpdate) error
	OnText       func(context.Context, TextUpdate) error
	OnCallback   func(context.Context, CallbackUpdate) error
	OnNewMember  func(context.Context, MemberUpdate) error
	OnLeftMember func(context.Context, MemberUpdate) error
}

func NewBot(token string) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Bot{api: api}, nil
}

// BotID returns the authorized bot's own user id.
func (b *Bot) BotID() int64 {
	if b == nil || b.api == nil {
		return 0
	}
	return b.api.Self.ID
}

func replyRef(msg *tgbotapi.Message) *ReplyRef {
	if msg == nil || msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
		return nil
	}
	from := msg.ReplyToMessage.From
	return &ReplyRef{
		UserID:    from.ID,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.UserName,
		IsBot:     from.IsBot,
	}
}

func memberUpdate(chatID int64, user tgbotapi.User) MemberUpdate {
	return MemberUpdate{
		ChatID:    chatID,
		UserID:    user.ID,
		Username:  user.UserName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsBot:     user.IsBot,
	}
}

func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			if err := b.dispatch(ctx, handlers, update); err != nil {
				return err
			}
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, handlers Handlers, update tgbotapi.Update) error {
	if update.Message != nil {
		msg := update.Message

		if len(msg.NewChatMembers) > 0 && handlers.OnNewMember != nil {
			for _, user := range msg.NewChatMembers {
				if err := handlers.OnNewMember(ctx, memberUpdate(msg.Chat.ID, user)); err != nil {
					return err
				}
			}
			return nil
		}

		if msg.LeftChatMember != nil && handlers.OnLeftMember != nil {
			return handlers.OnLeftMember(ctx, memberUpdate(msg.Chat.ID, *msg.LeftChatMember))
		}

		if msg.From == nil {
			return nil
		}

		if msg.IsCommand() && handlers.OnCommand != nil {
			return handlers.OnCommand(ctx, CommandUpdate{
				ChatID:    msg.Chat.ID,
				UserID:    msg.From.ID,
				Username:  msg.From.UserName,
				FirstName: msg.From.FirstName,
				LastName:  msg.From.LastName,
				MessageID: msg.MessageID,
				Command:   msg.Command(),
				Args:      msg.CommandArguments(),
				ReplyTo:   replyRef(msg),
			})
		}

		text := strings.TrimSpace(msg.Text)
		if text != "" && handlers.OnText != nil {
			return handlers.OnText(ctx, TextUpdate{
				ChatID:    msg.Chat.ID,
				UserID:    msg.From.ID,
				Username:  msg.From.UserName,
				FirstName: msg.From.FirstName,
				LastName:  msg.From.LastName,
				MessageID: msg.MessageID,
				Text:      text,
				ReplyTo:   replyRef(msg),
			})
		}

		return nil
	}

	if update.CallbackQuery != nil && update.CallbackQuery.From != nil && handlers.OnCallback != nil {
		chatID := int64(0)
		messageID := 0
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
			messageID = update.CallbackQuery.Message.MessageID
		}
		return handlers.OnCallback(ctx, CallbackUpdate{
			CallbackID: update.CallbackQuery.ID,
			ChatID:     chatID,
			MessageID:  messageID,
			UserID:     update.CallbackQuery.From.ID,
			Username:   update.CallbackQuery.From.UserName,
			FirstName:  update.CallbackQuery.From.FirstName,
			LastName:   update.CallbackQuery.From.LastName,
			Data:       update.CallbackQuery.Data,
		})
	}

	return nil
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := b.send(ctx, chatID, text, "", nil)
	return err
}

// SendHTML sends a message with HTML parse mode and returns its message id.
func (b *Bot) SendHTML(ctx context.Context, chatID int64, text string) (int, error) {
	return b.send(ctx, chatID, text, tgbotapi.ModeHTML, nil)
}

// SendDecisionButtons posts the candidate review prompt with the three
// decision buttons. Callback data encodes the action and the candidate id.
func (b *Bot) SendDecisionButtons(ctx context.Context, chatID int64, text string, candidateID int64) (int, error) {
	suffix := strconv.FormatInt(candidateID, 10)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Прийняти", "inv:accept:"+suffix),
			tgbotapi.NewInlineKeyboardButtonData("Чекати", "inv:wait:"+suffix),
			tgbotapi.NewInlineKeyboardButtonData("Відмовити", "inv:reject:"+suffix),
		),
	)
	return b.send(ctx, chatID, text, tgbotapi.ModeHTML, &markup)
}

func (b *Bot) send(ctx context.Context, chatID int64, text, parseMode string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	if b == nil || b.api == nil {
		return 0, fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return 0, fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	if markup != nil {
		msg.ReplyMarkup = *markup
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send telegram message: %w", err)
	}

	_ = ctx
	return sent.MessageID, nil
}

func (b *Bot) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("edit telegram message: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete telegram message: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(callbackID) == "" {
		return nil
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) BanChatMember(ctx context.Context, chatID, userID int64) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	}
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("ban chat member: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	cfg := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		OnlyIfBanned:     true,
	}
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("unban chat member: %w", err)
	}

	_ = ctx
	return nil
}

// CreateInviteLink issues a named invite link with an expiry and join limit.
func (b *Bot) CreateInviteLink(ctx context.Context, chatID int64, name string, expireAt time.Time, memberLimit int) (string, error) {
	if b == nil || b.api == nil {
		return "", fmt.Errorf("telegram bot is not initialized")
	}

	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: chatID},
		Name:        name,
		ExpireDate:  int(expireAt.Unix()),
		MemberLimit: memberLimit,
	}

	resp, err := b.api.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("create chat invite link: %w", err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode chat invite link: %w", err)
	}

	_ = ctx
	return link.InviteLink, nil
}

// IsChatMember reports whether the user is currently present in the chat.
func (b *Bot) IsChatMember(ctx context.Context, chatID, userID int64) (bool, error) {
	if b == nil || b.api == nil {
		return false, fmt.Errorf("telegram bot is not initialized")
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}

	switch member.Status {
	case "left", "kicked":
		return false, nil
	default:
		return true, nil
	}
}

func (b *Bot) LeaveChat(ctx context.Context, chatID int64) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	if _, err := b.api.Request(tgbotapi.LeaveChatConfig{ChatID: chatID}); err != nil {
		return fmt.Errorf("leave chat: %w", err)
	}

	_ = ctx
	return nil
}
