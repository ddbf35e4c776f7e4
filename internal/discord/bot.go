// Package discord serves the tutor as a Discord bot. Each channel (or DM)
// is one tutor session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/abhisek/algotutor/internal/chatbot"
)

// maxMessageLen is Discord's limit for one message.
const maxMessageLen = 2000

// Config configures the bot.
type Config struct {
	Token        string
	GuildID      string   // restrict to one guild; DMs are always served
	AllowedUsers []string // empty allows everyone
}

// Bot relays Discord messages to a chatbot.Responder.
type Bot struct {
	cfg       Config
	responder *chatbot.Responder
	allowed   map[string]bool
	session   *discordgo.Session
}

// New creates the Discord session. Run opens the gateway connection.
func New(cfg Config, responder *chatbot.Responder) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	b := &Bot{cfg: cfg, responder: responder, allowed: make(map[string]bool), session: s}
	for _, id := range cfg.AllowedUsers {
		b.allowed[id] = true
	}

	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	s.AddHandler(b.handleReady)
	s.AddHandler(b.handleMessage)
	return b, nil
}

// Run keeps the gateway connection open until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	<-ctx.Done()
	slog.Info("stopping discord bot")
	return b.session.Close()
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	slog.Info("discord bot connected", "user", r.User.Username)
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	if !b.accepts(m.GuildID, m.Author.ID) {
		return
	}

	ctx := context.Background()
	_ = s.ChannelTyping(m.ChannelID)

	text := b.responder.Respond(ctx, SessionID(m.ChannelID), m.Author.ID, m.Content)
	for _, chunk := range chatbot.Split(text, maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			slog.Error("send discord message failed", "channel_id", m.ChannelID, "error", err)
			return
		}
	}
}

// accepts reports whether a message from userID in guildID should be
// answered. An empty guildID is a DM.
func (b *Bot) accepts(guildID, userID string) bool {
	if b.cfg.GuildID != "" && guildID != "" && guildID != b.cfg.GuildID {
		return false
	}
	return len(b.allowed) == 0 || b.allowed[userID]
}

// SessionID maps a Discord channel to a tutor session.
func SessionID(channelID string) string {
	return "discord:" + channelID
}
