package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Telegram delivers conversation events from the Telegram Bot API to the
// Processor over long polling. Each update is handled in its own
// goroutine; per-conversation ordering is guaranteed by the session
// store's keyed lock, not by the transport.
type Telegram struct {
	api  *tgbotapi.BotAPI
	proc *Processor
	log  zerolog.Logger
}

// NewTelegram creates the Telegram adapter.
func NewTelegram(token string, proc *Processor, log zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram session: %w", err)
	}
	return &Telegram{api: api, proc: proc, log: log}, nil
}

// Run polls for updates until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.api.GetUpdatesChan(u)

	t.log.Info().Str("username", t.api.Self.UserName).Msg("telegram bot polling")

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		t.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		t.handleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Text != "":
		t.handleText(ctx, update.Message)
	}
}

func (t *Telegram) handleText(ctx context.Context, msg *tgbotapi.Message) {
	reply := t.proc.HandleMessage(ctx, msg.Chat.ID, msg.Text)
	t.send(msg.Chat.ID, reply)
}

func (t *Telegram) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		t.send(msg.Chat.ID, t.proc.HandleStart())
	case "accounts":
		t.send(msg.Chat.ID, t.proc.HandleAccounts(ctx))
	default:
		t.send(msg.Chat.ID, Reply{Text: "Unknown command. Use /help."})
	}
}

func (t *Telegram) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	reply := t.proc.HandleCallback(ctx, chatID, cq.Data)

	answer := tgbotapi.NewCallback(cq.ID, reply.Text)
	answer.ShowAlert = reply.Alert
	if _, err := t.api.Request(answer); err != nil {
		t.log.Warn().Err(err).Int64("chat_id", chatID).Msg("answering callback failed")
	}
	if !reply.Alert {
		t.send(chatID, Reply{Text: reply.Text})
	}
}

func (t *Telegram) send(chatID int64, reply Reply) {
	if reply.Text == "" {
		return
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.ConfirmToken != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Confirm", ActionConfirm+":"+reply.ConfirmToken),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Cancel", ActionCancel+":"+reply.ConfirmToken),
			),
		)
	}

	if _, err := t.api.Send(msg); err != nil {
		t.log.Error().Err(err).Int64("chat_id", chatID).Msg("sending reply failed")
	}
}
