package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string       `mapstructure:"database_url"`
	ServerPort  string       `mapstructure:"server_port"`
	JWTSecret   string       `mapstructure:"jwt_secret"`
	CORSOrigins []string     `mapstructure:"cors_origins"`
	Push        PushConfig   `mapstructure:"push"`
	Digest      DigestConfig `mapstructure:"digest"`
}

// PushConfig carries the VAPID key pair for the web-push transport. Keys are
// optional: without them push dispatch degrades to a warned no-op.
type PushConfig struct {
	VAPIDPublicKey  string        `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string        `mapstructure:"vapid_private_key"`
	ContactEmail    string        `mapstructure:"contact_email"`
	TTLSeconds      int           `mapstructure:"ttl_seconds"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
}

// Enabled reports whether the transport has the key material it needs.
func (c PushConfig) Enabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

type DigestConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if len(config.CORSOrigins) == 0 {
		config.CORSOrigins = []string{"http://localhost:3000"}
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Push.ContactEmail == "" {
		config.Push.ContactEmail = "noreply@streamline.app"
	}
	if config.Push.TTLSeconds == 0 {
		config.Push.TTLSeconds = 60
	}
	if config.Push.SendTimeout == 0 {
		config.Push.SendTimeout = 10 * time.Second
	}

	if config.Digest.PollInterval == 0 {
		config.Digest.PollInterval = 15 * time.Minute
	}
	if config.Digest.BatchSize == 0 {
		config.Digest.BatchSize = 100
	}

	return &config
}
