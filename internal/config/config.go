// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/algotutor/internal/problems"
	"github.com/abhisek/algotutor/internal/sandbox"
	"github.com/abhisek/algotutor/internal/store"
)

// Profile store backends.
const (
	ProfileSQLite = "sqlite"
	ProfileRedis  = "redis"
	ProfileMemory = "memory"
)

// Sandbox backends.
const (
	SandboxLocal  = "local"
	SandboxDocker = "docker"
	SandboxOff    = "off"
)

// Config holds all application configuration outside the LLM providers,
// which are configured by llm.ResolveConfig.
type Config struct {
	DataDir string
	DBPath  string
	Addr    string

	Profiles ProfileConfig
	Trace    TraceConfig
	Sandbox  SandboxConfig
	Problems ProblemsConfig
	Telegram TelegramConfig
	Discord  DiscordConfig
	Log      LogConfig
}

// ProfileConfig selects where student profiles live.
type ProfileConfig struct {
	Backend  string
	RedisURL string
	TTL      time.Duration
}

// TraceConfig controls per-turn trace capture.
type TraceConfig struct {
	Enabled bool
	Dir     string
}

// SandboxConfig controls user code execution.
type SandboxConfig struct {
	Backend string
	Timeout time.Duration
	Python  string
	Image   string
}

// ProblemsConfig points at the problem sources.
type ProblemsConfig struct {
	GraphQLURL string
	MCPCommand string
	MCPURL     string
}

// TelegramConfig configures the Telegram frontend.
type TelegramConfig struct {
	Token        string
	AllowedUsers []int64
}

// DiscordConfig configures the Discord frontend.
type DiscordConfig struct {
	Token        string
	GuildID      string // empty serves every guild and DMs
	AllowedUsers []string
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// Load reads configuration from ALGOTUTOR_* environment variables.
func Load() (*Config, error) {
	dataDir := getEnv("ALGOTUTOR_DATA_DIR", "")
	if dataDir == "" {
		d, err := store.DataDir()
		if err != nil {
			return nil, err
		}
		dataDir = d
	}

	allowed, err := parseIDs(getEnv("ALGOTUTOR_TELEGRAM_ALLOWED_USERS", ""))
	if err != nil {
		return nil, fmt.Errorf("ALGOTUTOR_TELEGRAM_ALLOWED_USERS: %w", err)
	}

	cfg := &Config{
		DataDir: dataDir,
		DBPath:  getEnv("ALGOTUTOR_DB", filepath.Join(dataDir, "algotutor.db")),
		Addr:    getEnv("ALGOTUTOR_ADDR", ":8080"),
		Profiles: ProfileConfig{
			Backend:  strings.ToLower(getEnv("ALGOTUTOR_PROFILE_STORE", ProfileSQLite)),
			RedisURL: getEnv("ALGOTUTOR_REDIS_URL", ""),
			TTL:      getEnvDuration("ALGOTUTOR_PROFILE_TTL", 0),
		},
		Trace: TraceConfig{
			Enabled: getEnvBool("ALGOTUTOR_TRACE", false),
			Dir:     getEnv("ALGOTUTOR_TRACE_DIR", filepath.Join(dataDir, "traces")),
		},
		Sandbox: SandboxConfig{
			Backend: strings.ToLower(getEnv("ALGOTUTOR_SANDBOX", SandboxLocal)),
			Timeout: getEnvDuration("ALGOTUTOR_SANDBOX_TIMEOUT", sandbox.DefaultTimeout),
			Python:  getEnv("ALGOTUTOR_PYTHON", "python3"),
			Image:   getEnv("ALGOTUTOR_SANDBOX_IMAGE", sandbox.DefaultImage),
		},
		Problems: ProblemsConfig{
			GraphQLURL: getEnv("ALGOTUTOR_LEETCODE_URL", problems.DefaultGraphQLURL),
			MCPCommand: getEnv("ALGOTUTOR_MCP_COMMAND", ""),
			MCPURL:     getEnv("ALGOTUTOR_MCP_URL", ""),
		},
		Telegram: TelegramConfig{
			Token:        getEnv("ALGOTUTOR_TELEGRAM_TOKEN", ""),
			AllowedUsers: allowed,
		},
		Discord: DiscordConfig{
			Token:        getEnv("ALGOTUTOR_DISCORD_TOKEN", ""),
			GuildID:      getEnv("ALGOTUTOR_DISCORD_GUILD", ""),
			AllowedUsers: splitList(getEnv("ALGOTUTOR_DISCORD_ALLOWED_USERS", "")),
		},
		Log: LogConfig{
			Level:  getEnv("ALGOTUTOR_LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("ALGOTUTOR_LOG_FORMAT", "text")),
			File:   getEnv("ALGOTUTOR_LOG_FILE", filepath.Join(dataDir, "algotutor.log")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("ALGOTUTOR_DB cannot be empty")
	}
	switch c.Profiles.Backend {
	case ProfileSQLite, ProfileMemory:
	case ProfileRedis:
		if c.Profiles.RedisURL == "" {
			return errors.New("ALGOTUTOR_REDIS_URL is required for the redis profile store")
		}
	default:
		return fmt.Errorf("unknown profile store %q (want sqlite, redis or memory)", c.Profiles.Backend)
	}
	if c.Profiles.TTL < 0 {
		return errors.New("ALGOTUTOR_PROFILE_TTL must be >= 0")
	}
	switch c.Sandbox.Backend {
	case SandboxLocal, SandboxDocker, SandboxOff:
	default:
		return fmt.Errorf("unknown sandbox %q (want local, docker or off)", c.Sandbox.Backend)
	}
	if c.Sandbox.Timeout <= 0 {
		return errors.New("ALGOTUTOR_SANDBOX_TIMEOUT must be > 0")
	}
	if c.Problems.MCPCommand != "" && c.Problems.MCPURL != "" {
		return errors.New("set only one of ALGOTUTOR_MCP_COMMAND and ALGOTUTOR_MCP_URL")
	}
	if c.Trace.Enabled && c.Trace.Dir == "" {
		return errors.New("ALGOTUTOR_TRACE_DIR cannot be empty when tracing is enabled")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	return nil
}

// MCP returns the MCP connection settings, or false when no MCP server is
// configured.
func (c *Config) MCP() (problems.MCPConfig, bool) {
	if c.Problems.MCPCommand == "" && c.Problems.MCPURL == "" {
		return problems.MCPConfig{}, false
	}
	return problems.MCPConfig{Command: c.Problems.MCPCommand, URL: c.Problems.MCPURL}, true
}

// getEnv treats an empty variable as unset.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
