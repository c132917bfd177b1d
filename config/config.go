package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"discord-modbot/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ErrMissingToken is returned when no bot token is available.
var ErrMissingToken = errors.New("DISCORD_TOKEN environment variable not set")

// Options controls where configuration is read from.
type Options struct {
	ConfigFile string
	EnvFile    string
	// RequireToken is false for offline CLI commands that never connect.
	RequireToken bool
	// Logger defaults to the global logger.
	Logger *zap.Logger
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prefix", "!")
	v.SetDefault("data_dir", "data")
	v.SetDefault("log_channel_id", "")

	v.SetDefault("storage.backend", "json")
	v.SetDefault("storage.logs_file", "logs.json")
	v.SetDefault("storage.warns_file", "warns.json")
	v.SetDefault("storage.sqlite_path", "moderation.db")

	v.SetDefault("moderation.max_warns", 3)
	v.SetDefault("moderation.bad_words", []string{"mot1", "mot2", "mot3", "exemple"})
	v.SetDefault("moderation.block_invites", true)

	v.SetDefault("anti_raid.enabled", false)
	v.SetDefault("anti_raid.velocity_window", time.Second)
	v.SetDefault("anti_raid.min_account_age", 600*time.Second)
	v.SetDefault("anti_raid.tracking_ttl", time.Minute)
	v.SetDefault("anti_raid.tracking_size", 10000)

	v.SetDefault("tickets.category_name", "Tickets support")
	v.SetDefault("tickets.grace_delay", 5*time.Second)
	v.SetDefault("tickets.inline_limit", 1900)

	v.SetDefault("mass_dm.delay", 500*time.Millisecond)
	v.SetDefault("mass_dm.confirm_ttl", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")

	v.SetDefault("metrics.listen", "")
}

// Load loads the configuration from the environment, an optional .env file and an
// optional config file. Environment variables prefixed with MODBOT_ override file
// values, e.g. MODBOT_ANTI_RAID_ENABLED=true.
func Load(opts Options) (*model.Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	// A missing .env file is fine; the variables may come from the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Debug("Ignoring unreadable .env file", zap.String("path", envFile), zap.Error(err))
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MODBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("data")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		token = os.Getenv("BOT_TOKEN")
	}
	if token == "" && opts.RequireToken {
		return nil, ErrMissingToken
	}
	cfg.BotToken = token

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	resolvePaths(cfg)
	return cfg, nil
}

// Validate rejects settings the bot cannot run with.
func Validate(cfg *model.Config) error {
	if strings.TrimSpace(cfg.Prefix) == "" {
		return errors.New("prefix must not be empty")
	}
	switch cfg.Storage.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Moderation.MaxWarns < 1 {
		return fmt.Errorf("moderation.max_warns must be positive, got %d", cfg.Moderation.MaxWarns)
	}
	if cfg.AntiRaid.VelocityWindow <= 0 || cfg.AntiRaid.MinAccountAge < 0 {
		return errors.New("anti_raid thresholds must be positive")
	}
	if cfg.AntiRaid.TrackingSize < 1 {
		return errors.New("anti_raid.tracking_size must be positive")
	}
	if cfg.Tickets.InlineLimit < 1 {
		return errors.New("tickets.inline_limit must be positive")
	}
	return nil
}

// resolvePaths places relative store paths under the data directory.
func resolvePaths(cfg *model.Config) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(cfg.DataDir, p)
	}
	cfg.Storage.LogsFile = join(cfg.Storage.LogsFile)
	cfg.Storage.WarnsFile = join(cfg.Storage.WarnsFile)
	cfg.Storage.SQLitePath = join(cfg.Storage.SQLitePath)
}
