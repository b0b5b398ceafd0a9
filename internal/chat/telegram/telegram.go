// Package telegram implements the chat.Frontend interface on the Telegram
// Bot API using the go-telegram/bot library.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/daslui/telegram-music-bot/internal/chat"
	"github.com/daslui/telegram-music-bot/pkg/tracklink"
)

const chatTypePrivate = "private"

// Frontend implements chat.Frontend for Telegram.
type Frontend struct {
	logger   *zap.Logger
	bot      *bot.Bot
	handlers chat.Handlers
}

// NewFrontend creates the Telegram frontend and validates the bot token
// format. The network is not touched until Listen.
func NewFrontend(botToken string, logger *zap.Logger) (*Frontend, error) {
	f := &Frontend{logger: logger}

	opts := []bot.Option{
		bot.WithSkipGetMe(),
		// Handlers block on external calls; a few workers keep one slow
		// request from stalling everyone else's.
		bot.WithWorkers(4),
		bot.WithDefaultHandler(f.handleUpdate),
		bot.WithCallbackQueryDataHandler(tracklink.ApproveTokenPrefix, bot.MatchTypePrefix, f.handleVoteCallback),
		bot.WithCallbackQueryDataHandler(tracklink.DeclineToken, bot.MatchTypeExact, f.handleVoteCallback),
	}

	b, err := bot.New(botToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	f.bot = b

	return f, nil
}

// Listen starts long polling and dispatches updates to the handlers. It
// blocks until ctx is canceled.
func (f *Frontend) Listen(ctx context.Context, handlers chat.Handlers) error {
	f.handlers = handlers

	f.logger.Info("Telegram frontend listening")
	f.bot.Start(ctx)
	return nil
}

// handleUpdate converts plain message updates; button taps arrive through
// the callback handlers instead.
func (f *Frontend) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if f.handlers.OnMessage == nil {
		return
	}

	msg := update.Message
	threadID := ""
	if msg.MessageThreadID != 0 {
		threadID = strconv.Itoa(msg.MessageThreadID)
	}

	f.handlers.OnMessage(ctx, &chat.Message{
		ID:          strconv.Itoa(msg.ID),
		ChatID:      strconv.FormatInt(msg.Chat.ID, 10),
		ThreadID:    threadID,
		SenderID:    strconv.FormatInt(msg.From.ID, 10),
		SenderFirst: msg.From.FirstName,
		SenderUser:  msg.From.Username,
		Text:        msg.Text,
		IsPrivate:   msg.Chat.Type == chatTypePrivate,
	})
}

func (f *Frontend) handleVoteCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil || f.handlers.OnVote == nil {
		return
	}
	if cq.Message.Message == nil {
		// Vote message too old, Telegram stripped it from the callback.
		f.answerCallback(ctx, b, cq.ID, "")
		return
	}

	msg := cq.Message.Message
	f.handlers.OnVote(ctx, &chat.Vote{
		CallbackID: cq.ID,
		MessageID:  strconv.Itoa(msg.ID),
		ChatID:     strconv.FormatInt(msg.Chat.ID, 10),
		Token:      cq.Data,
		VoterID:    strconv.FormatInt(cq.From.ID, 10),
		VoterFirst: cq.From.FirstName,
		VoterUser:  cq.From.Username,
	})
}

func (f *Frontend) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) {
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		f.logger.Debug("Failed to answer callback query", zap.Error(err))
	}
}

// SendText sends a plain text message, optionally as a reply.
func (f *Frontend) SendText(ctx context.Context, chatID, replyToID, text string) (string, error) {
	chatIDInt, err := parseChatID(chatID)
	if err != nil {
		return "", err
	}

	params := &bot.SendMessageParams{
		ChatID:             chatIDInt,
		Text:               text,
		LinkPreviewOptions: disabledLinkPreview(),
	}

	if replyToID != "" {
		messageID, parseErr := strconv.Atoi(replyToID)
		if parseErr != nil {
			return "", fmt.Errorf("invalid reply message ID: %w", parseErr)
		}
		params.ReplyParameters = &models.ReplyParameters{
			MessageID: messageID,
		}
	}

	msg, err := f.bot.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	return strconv.Itoa(msg.ID), nil
}

// SendButtons sends a message with one row of inline buttons.
func (f *Frontend) SendButtons(ctx context.Context, chatID, threadID, text string, buttons []chat.Button) (string, error) {
	chatIDInt, err := parseChatID(chatID)
	if err != nil {
		return "", err
	}

	row := make([]models.InlineKeyboardButton, 0, len(buttons))
	for _, btn := range buttons {
		row = append(row, models.InlineKeyboardButton{
			Text:         btn.Label,
			CallbackData: btn.Token,
		})
	}

	params := &bot.SendMessageParams{
		ChatID:             chatIDInt,
		Text:               text,
		ReplyMarkup:        &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}},
		LinkPreviewOptions: disabledLinkPreview(),
	}

	if threadID != "" {
		thread, parseErr := strconv.Atoi(threadID)
		if parseErr != nil {
			return "", fmt.Errorf("invalid thread ID: %w", parseErr)
		}
		params.MessageThreadID = thread
	}

	msg, err := f.bot.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("send vote message: %w", err)
	}

	return strconv.Itoa(msg.ID), nil
}

// EditText replaces a message's text. The empty reply markup drops the
// inline buttons, so a resolved vote message cannot be tapped again.
func (f *Frontend) EditText(ctx context.Context, chatID, msgID, text string) error {
	chatIDInt, err := parseChatID(chatID)
	if err != nil {
		return err
	}

	messageID, err := strconv.Atoi(msgID)
	if err != nil {
		return fmt.Errorf("invalid message ID: %w", err)
	}

	_, err = f.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:             chatIDInt,
		MessageID:          messageID,
		Text:               text,
		LinkPreviewOptions: disabledLinkPreview(),
	})
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message by id.
func (f *Frontend) DeleteMessage(ctx context.Context, chatID, msgID string) error {
	chatIDInt, err := parseChatID(chatID)
	if err != nil {
		return err
	}

	messageID, err := strconv.Atoi(msgID)
	if err != nil {
		return fmt.Errorf("invalid message ID: %w", err)
	}

	_, err = f.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatIDInt,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button tap with short feedback text.
func (f *Frontend) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := f.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}
	return id, nil
}

// Spotify links preview poorly in Telegram; keep messages compact.
func disabledLinkPreview() *models.LinkPreviewOptions {
	disabled := true
	return &models.LinkPreviewOptions{IsDisabled: &disabled}
}
