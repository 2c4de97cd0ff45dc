package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig describes the bot configuration.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"Asia/Tokyo"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Discord struct {
		Token   string `envconfig:"DISCORD_BOT_TOKEN"`
		GuildID string `envconfig:"DISCORD_GUILD_ID"`
	} `envconfig:""`

	Sheet struct {
		ID            string `envconfig:"SHEET_ID"`
		AttendanceGID string `envconfig:"SHEET_ATTENDANCE_GID"`
		ReportGID     string `envconfig:"SHEET_REPORT_GID"`
	} `envconfig:""`

	Attendance struct {
		Interval       string `envconfig:"ATTENDANCE_INTERVAL" default:"1m"`
		Watermark      string `envconfig:"WATERMARK"`
		SubchannelName string `envconfig:"ATTENDANCE_SUBCHANNEL" default:"今日のお仕事"`
		LedgerPath     string `envconfig:"LEDGER_PATH" default:"delivered_keys.json"`
	} `envconfig:""`

	Remind struct {
		Path           string `envconfig:"REMIND_PATH" default:"remind_config.json"`
		DefaultChannel string `envconfig:"REMIND_DEFAULT_CHANNEL" default:"スタッフ連絡"`
	} `envconfig:""`

	Report struct {
		Enabled   bool   `envconfig:"REPORT_ENABLED" default:"true"`
		Hour      int    `envconfig:"REPORT_HOUR" default:"16"`
		Minute    int    `envconfig:"REPORT_MINUTE" default:"30"`
		ChannelID string `envconfig:"REPORT_CHANNEL_ID"`
		RoleID    string `envconfig:"REPORT_ROLE_ID"`
	} `envconfig:""`
}

// Load reads the config from the environment, honouring a local .env file.
func Load() AppConfig {
	_ = godotenv.Load()
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
