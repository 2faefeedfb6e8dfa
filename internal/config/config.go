package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Stock struct {
		QuarantineLocation string   `mapstructure:"quarantine_location"`
		ApprovedLocation   string   `mapstructure:"approved_location"`
		RejectedLocation   string   `mapstructure:"rejected_location"`
		ControlledGroups   []string `mapstructure:"controlled_groups"`
	} `mapstructure:"stock"`

	Purchasing struct {
		DuplicateWindowDays int      `mapstructure:"duplicate_window_days"`
		DefaultLeadDays     int      `mapstructure:"default_lead_days"`
		SystemUsers         []string `mapstructure:"system_users"`
	} `mapstructure:"purchasing"`

	Scheduler struct {
		Enabled bool
		DailyAt string `mapstructure:"daily_at"`
	} `mapstructure:"scheduler"`

	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	} `mapstructure:"smtp"`

	Telegram struct {
		Token            string
		PurchasingChatID int64 `mapstructure:"purchasing_chat_id"`
		QualityChatID    int64 `mapstructure:"quality_chat_id"`
		Bot              bool
		PollTimeout      int `mapstructure:"poll_timeout"`
	} `mapstructure:"telegram"`

	RabbitMQ struct {
		URL      string
		Exchange string
	} `mapstructure:"rabbitmq"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("stock.controlled_groups", []string{"Materia Prima", "Empaque", "Raw Material", "Packaging"})
	v.SetDefault("purchasing.duplicate_window_days", 3)
	v.SetDefault("purchasing.default_lead_days", 7)
	v.SetDefault("purchasing.system_users", []string{"Administrator", "Guest"})
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.daily_at", "06:00")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("telegram.bot", true)
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("rabbitmq.exchange", "labstock")
}

// Load reads the YAML file at path. Any key can be overridden with an APP_
// variable, e.g. APP_POSTGRES_DSN or APP_SMTP_PASSWORD.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
