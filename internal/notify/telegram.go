package notify

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/adamsnows/jobhunter-bot/internal/secrets"
)

// Telegram pushes reports to a single chat. The bot token lives in the
// keychain; the bot is created on first send and reused after.
type Telegram struct {
	chatID   int64
	password func(account string) (string, error)
	bot      *tele.Bot
}

func NewTelegram(chatID int64, password func(account string) (string, error)) (*Telegram, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	return &Telegram{chatID: chatID, password: password}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, subject, body string) error {
	if t.bot == nil {
		token, err := t.password(secrets.TelegramAccount())
		if err != nil {
			return fmt.Errorf("telegram credential: %w", err)
		}
		bot, err := tele.NewBot(tele.Settings{
			Token:  token,
			Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		})
		if err != nil {
			return fmt.Errorf("telegram bot: %w", err)
		}
		t.bot = bot
	}

	text := body
	if subject != "" {
		text = subject + "\n\n" + body
	}
	_, err := t.bot.Send(tele.ChatID(t.chatID), text, &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
