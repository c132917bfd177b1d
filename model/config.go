package model

import "time"

// StorageConfig selects and locates the moderation store.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	LogsFile   string `mapstructure:"logs_file"`
	WarnsFile  string `mapstructure:"warns_file"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ModerationConfig holds the warning threshold and content filters.
type ModerationConfig struct {
	MaxWarns     int      `mapstructure:"max_warns"`
	BadWords     []string `mapstructure:"bad_words"`
	BlockInvites bool     `mapstructure:"block_invites"`
}

// AntiRaidConfig holds the anti-raid thresholds.
type AntiRaidConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	VelocityWindow time.Duration `mapstructure:"velocity_window"`
	MinAccountAge  time.Duration `mapstructure:"min_account_age"`
	TrackingTTL    time.Duration `mapstructure:"tracking_ttl"`
	TrackingSize   int           `mapstructure:"tracking_size"`
}

// TicketConfig holds the ticket system settings.
type TicketConfig struct {
	CategoryName string        `mapstructure:"category_name"`
	GraceDelay   time.Duration `mapstructure:"grace_delay"`
	InlineLimit  int           `mapstructure:"inline_limit"`
}

// MassDMConfig throttles the sendall command.
type MassDMConfig struct {
	Delay      time.Duration `mapstructure:"delay"`
	ConfirmTTL time.Duration `mapstructure:"confirm_ttl"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// MetricsConfig configures the optional Prometheus listener.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Config 存储应用程序的配置
type Config struct {
	BotToken     string           `mapstructure:"-"`
	Prefix       string           `mapstructure:"prefix"`
	DataDir      string           `mapstructure:"data_dir"`
	LogChannelID string           `mapstructure:"log_channel_id"`
	Storage      StorageConfig    `mapstructure:"storage"`
	Moderation   ModerationConfig `mapstructure:"moderation"`
	AntiRaid     AntiRaidConfig   `mapstructure:"anti_raid"`
	Tickets      TicketConfig     `mapstructure:"tickets"`
	MassDM       MassDMConfig     `mapstructure:"mass_dm"`
	Log          LogConfig        `mapstructure:"log"`
	Metrics      MetricsConfig    `mapstructure:"metrics"`
}
