package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/algotutor/internal/config"
	"github.com/abhisek/algotutor/internal/logging"
	"github.com/abhisek/algotutor/internal/store"
)

// cfg is loaded once per invocation by the root PersistentPreRunE.
var cfg *config.Config

// logFile is the TUI log file, closed when Execute returns.
var logFile *os.File

var rootCmd = &cobra.Command{
	Use:   "algotutor",
	Short: "Socratic DSA tutor",
	Long: "AlgoTutor is a conversational tutor for data structures and algorithms. " +
		"It nudges with questions instead of handing out solutions, can run a mock " +
		"interview, and can play a student you teach.",
	SilenceUsage: true,
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context so
// servers and bots shut down cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeLogFile()
	return rootCmd.ExecuteContext(ctx)
}

func closeLogFile() {
	if logFile == nil {
		return
	}
	_ = logFile.Close()
	logFile = nil
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle through setup/runChat -> isTUI -> rootCmd.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	}
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides ALGOTUTOR_DB env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides ALGOTUTOR_LOG_LEVEL)")
	addChatFlags(rootCmd)

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(telegramCmd)
	rootCmd.AddCommand(discordCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(problemCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads .env and the environment, applies global flags and installs
// the default logger. The full-screen chat logs to a file so log lines do
// not tear the UI.
func setup(cmd *cobra.Command) error {
	envErr := godotenv.Load()

	c, err := config.Load()
	if err != nil {
		return err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		c.DBPath = p
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		c.Log.Level = l
	}
	cfg = c

	var out io.Writer = os.Stderr
	if isTUI(cmd) {
		f, err := logging.OpenFile(c.Log.File)
		if err != nil {
			return err
		}
		logFile = f
		out = f
	}
	if err := installLogger(c.Log.Level, out); err != nil {
		return err
	}
	if envErr != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	return nil
}

// installLogger makes a logger at level the slog default.
func installLogger(level string, out io.Writer) error {
	logger, err := logging.New(logging.Config{Level: level, Format: cfg.Log.Format, Output: out})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}

// openStore opens the SQLite database at cfg.DBPath, creating its
// directory.
func openStore() (*store.Store, error) {
	if err := store.EnsureDir(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
