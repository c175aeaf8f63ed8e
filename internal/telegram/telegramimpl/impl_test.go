package telegramimpl

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orgball2608/storyreel/internal/telegram"
	"github.com/orgball2608/storyreel/pkg/config"
	"github.com/orgball2608/storyreel/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestNotify_EscapesMarkdown(t *testing.T) {
	sender := &fakeSender{}
	tg := &TelegramImpl{Bot: sender, ChatID: 42, Logger: logger.NewNop()}

	require.NoError(t, tg.Notify(context.Background(), "stories.list failed (retry 3)"))

	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
	assert.Equal(t, `⚠️ stories\.list failed \(retry 3\)`, msg.Text)
}

func TestNotify_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("bot blocked")}
	tg := &TelegramImpl{Bot: sender, ChatID: 42, Logger: logger.NewNop()}

	assert.Error(t, tg.Notify(context.Background(), "x"))
}

func TestNew_DisabledWithoutToken(t *testing.T) {
	n, err := New(Opts{Config: &config.Config{}, Logger: logger.NewNop()})

	require.NoError(t, err)
	assert.IsType(t, telegram.NopNotifier{}, n)
}
