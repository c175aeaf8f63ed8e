package telegramimpl

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orgball2608/storyreel/internal/telegram"
	"github.com/orgball2608/storyreel/pkg/config"
	"github.com/orgball2608/storyreel/pkg/formatter"
	"github.com/orgball2608/storyreel/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

// Sender is the part of the bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramImpl struct {
	Bot    Sender
	ChatID int64
	Logger logger.Logger
}

var _ telegram.Notifier = (*TelegramImpl)(nil)

// New returns a Telegram notifier, or a no-op one when no bot token or admin
// chat is configured.
func New(opts Opts) (telegram.Notifier, error) {
	if opts.Config.Telegram.Token == "" || opts.Config.Telegram.AdminChat == 0 {
		opts.Logger.Info("Telegram notifier disabled")
		return telegram.NopNotifier{}, nil
	}

	bot, err := tgbotapi.NewBotAPI(opts.Config.Telegram.Token)
	if err != nil {
		opts.Logger.Error("Error creating bot", "Error", err)
		return nil, err
	}

	return &TelegramImpl{
		Bot:    bot,
		ChatID: opts.Config.Telegram.AdminChat,
		Logger: opts.Logger.WithComponent("telegram"),
	}, nil
}

func (tg *TelegramImpl) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(tg.ChatID, "⚠️ "+formatter.EscapeMarkdownV2(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := tg.Bot.Send(msg); err != nil {
		tg.Logger.Error("Error sending message to admin chat", "chat_id", tg.ChatID, "error", err)
		return fmt.Errorf("failed to send telegram notice: %w", err)
	}

	tg.Logger.Info("Notice sent to admin chat", "chat_id", tg.ChatID)
	return nil
}
