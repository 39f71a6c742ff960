// internal/telegram/client.go
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is the outbound messaging surface the bot core depends on.
// Command handlers talk to this interface, never to the Bot API type
// directly, so tests can swap in a recording fake.
type Client interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendMarkdownV2(ctx context.Context, chatID int64, text string) error
	SendQuiz(ctx context.Context, chatID int64, question string, options []string, correctIndex int64) error
	BanMember(ctx context.Context, chatID, userID int64) error
	UnbanMember(ctx context.Context, chatID, userID int64) error
	Administrators(ctx context.Context, chatID int64) ([]tgbotapi.User, error)
}

// Bot adapts tgbotapi to the Client interface. The underlying library
// has no context plumbing, so each call checks for cancellation before
// touching the network and abandons cleanly if shutdown already fired.
type Bot struct {
	api *tgbotapi.BotAPI
}

func NewBot(api *tgbotapi.BotAPI) *Bot {
	return &Bot{api: api}
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) SendMarkdownV2(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendQuiz(ctx context.Context, chatID int64, question string, options []string, correctIndex int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	poll := tgbotapi.NewPoll(chatID, question, options...)
	poll.Type = "quiz"
	poll.IsAnonymous = false
	poll.CorrectOptionID = correctIndex
	_, err := b.api.Send(poll)
	return err
}

func (b *Bot) BanMember(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.api.Request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	})
	return err
}

func (b *Bot) UnbanMember(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.api.Request(tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	})
	return err
}

func (b *Bot) Administrators(ctx context.Context, chatID int64) ([]tgbotapi.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	members, err := b.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, err
	}
	users := make([]tgbotapi.User, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			users = append(users, *m.User)
		}
	}
	return users, nil
}
