// Package telegram serves the tutor as a long-polling Telegram bot. Each
// chat is one tutor session.
package telegram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/gofrs/flock"

	"github.com/abhisek/algotutor/internal/chatbot"
)

// maxMessageLen is Telegram's limit for one text message.
const maxMessageLen = 4096

// ErrAlreadyRunning is returned by Run when another process holds the
// lock for the same bot token.
var ErrAlreadyRunning = errors.New("telegram bot already running for this token")

// Config configures the bot.
type Config struct {
	Token        string
	AllowedUsers []int64 // empty allows everyone
	LockDir      string  // directory for the single-instance lock file
}

// Bot relays Telegram messages to a chatbot.Responder.
type Bot struct {
	cfg       Config
	responder *chatbot.Responder
	allowed   map[int64]bool
}

// New returns a Bot. Run connects to Telegram.
func New(cfg Config, responder *chatbot.Responder) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	allowed := make(map[int64]bool, len(cfg.AllowedUsers))
	for _, id := range cfg.AllowedUsers {
		allowed[id] = true
	}
	return &Bot{cfg: cfg, responder: responder, allowed: allowed}, nil
}

// Run polls for updates until ctx is cancelled. Only one process per token
// may poll; a second one gets ErrAlreadyRunning.
func (b *Bot) Run(ctx context.Context) error {
	lock, err := b.acquireLock()
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("release telegram lock failed", "error", err)
		}
	}()

	tg, err := bot.New(b.cfg.Token,
		bot.WithDefaultHandler(b.handleUpdate),
		bot.WithErrorsHandler(func(err error) {
			slog.Warn("telegram error", "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	_, err = tg.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "Introduce the tutor"},
			{Command: "reset", Description: "Clear your progress"},
			{Command: "profile", Description: "Show what the tutor knows about you"},
		},
	})
	if err != nil {
		slog.Warn("set telegram commands failed", "error", err)
	}

	slog.Info("telegram bot started", "lock", lock.Path())
	tg.Start(ctx)
	slog.Info("telegram bot stopped")
	return nil
}

func (b *Bot) acquireLock() (*flock.Flock, error) {
	path := LockPath(b.cfg.LockDir, b.cfg.Token)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire telegram lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	return lock, nil
}

// LockPath returns the lock file for token. The token itself never
// appears in the path.
func LockPath(dir, token string) string {
	sum := sha256.Sum256([]byte(token))
	return filepath.Join(dir, "telegram-"+hex.EncodeToString(sum[:8])+".lock")
}

func (b *Bot) handleUpdate(ctx context.Context, tg *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	if !b.isAllowed(userID, chatID) {
		slog.Warn("unauthorized telegram message", "user_id", userID, "chat_id", chatID)
		return
	}

	_, _ = tg.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})

	text := b.responder.Respond(ctx, SessionID(chatID), strconv.FormatInt(userID, 10), msg.Text)
	for _, chunk := range chatbot.Split(text, maxMessageLen) {
		if _, err := tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: chunk}); err != nil {
			slog.Error("send telegram message failed", "chat_id", chatID, "error", err)
			return
		}
	}
}

func (b *Bot) isAllowed(userID, chatID int64) bool {
	return len(b.allowed) == 0 || b.allowed[userID] || b.allowed[chatID]
}

// SessionID maps a Telegram chat to a tutor session.
func SessionID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}
