package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/abhisek/algotutor/internal/chatbot"
	"github.com/abhisek/algotutor/internal/discord"
	"github.com/abhisek/algotutor/internal/telegram"
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the tutor as a Telegram bot (long polling)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Telegram.Token == "" {
			return errors.New("ALGOTUTOR_TELEGRAM_TOKEN is not set")
		}
		ctx := cmd.Context()
		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		bot, err := telegram.New(telegram.Config{
			Token:        cfg.Telegram.Token,
			AllowedUsers: cfg.Telegram.AllowedUsers,
			LockDir:      cfg.DataDir,
		}, chatbot.NewResponder(rt.tutor))
		if err != nil {
			return err
		}
		return bot.Run(ctx)
	},
}

var discordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Run the tutor as a Discord bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Discord.Token == "" {
			return errors.New("ALGOTUTOR_DISCORD_TOKEN is not set")
		}
		ctx := cmd.Context()
		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		bot, err := discord.New(discord.Config{
			Token:        cfg.Discord.Token,
			GuildID:      cfg.Discord.GuildID,
			AllowedUsers: cfg.Discord.AllowedUsers,
		}, chatbot.NewResponder(rt.tutor))
		if err != nil {
			return err
		}
		return bot.Run(ctx)
	},
}
