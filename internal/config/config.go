package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Mail     MailConfig     `mapstructure:"mail"`
	Coaching CoachingConfig `mapstructure:"coaching"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration. Tokens are issued by the
// platform's account system; this service only verifies them.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// MailConfig defines the SMTP settings for invite code delivery.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// CoachingConfig holds the capacity and throttle numbers. Tier limits are
// configuration, not constants of the design; changing a plan's seat count is
// a deploy, not a code change.
type CoachingConfig struct {
	TierLimits      map[string]int `mapstructure:"tier_limits"`
	MaxExtraClients int            `mapstructure:"max_extra_clients"`
	InviteCodeTTL   time.Duration  `mapstructure:"invite_code_ttl"`
	LeadInterval    time.Duration  `mapstructure:"lead_interval"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: nested keys map to underscored vars,
	// e.g. coaching.invite_code_ttl -> COACHING_INVITE_CODE_TTL.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "mealcoach")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("mail.enabled", false)
	viper.SetDefault("mail.port", 587)
	viper.SetDefault("coaching.tier_limits", map[string]int{
		"starter": 10,
		"growth":  30,
		"pro":     100,
	})
	viper.SetDefault("coaching.max_extra_clients", 5)
	viper.SetDefault("coaching.invite_code_ttl", "48h")
	viper.SetDefault("coaching.lead_interval", "24h")
	viper.SetDefault("logging.level", "info")

	err = viper.ReadInConfig()
	// A missing config file is fine; env vars and defaults carry the rest.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
