// Package config loads the cipherboxd configuration from a YAML file with
// CIPHERBOX_-prefixed environment overrides.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	TEE     TEEConfig     `mapstructure:"tee"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	BearerSecret       string        `mapstructure:"bearer_secret"`
	RepublishPerMinute int           `mapstructure:"republish_per_minute"`
	RepublishBurst     int           `mapstructure:"republish_burst"`
}

// TEEConfig selects the key derivation backend. The simulator refuses to
// construct when environment is production.
type TEEConfig struct {
	Backend     string        `mapstructure:"backend"` // simulator or nitro
	Environment string        `mapstructure:"environment"`
	SeedHex     string        `mapstructure:"seed_hex"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

type StorageConfig struct {
	Backend         string `mapstructure:"backend"` // file or mongo
	Dir             string `mapstructure:"dir"`
	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDB         string `mapstructure:"mongo_db"`
	StateCollection string `mapstructure:"state_collection"`
	AuditCollection string `mapstructure:"audit_collection"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/cipherbox")
	}

	v.SetEnvPrefix("CIPHERBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Secrets arrive through the environment, never the config file.
	_ = v.BindEnv("server.bearer_secret", "CIPHERBOX_SERVER_BEARER_SECRET")
	_ = v.BindEnv("tee.seed_hex", "CIPHERBOX_TEE_SEED_HEX")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8089)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.republish_per_minute", 60)
	v.SetDefault("server.republish_burst", 10)

	v.SetDefault("tee.backend", "simulator")
	v.SetDefault("tee.environment", "dev")
	v.SetDefault("tee.grace_period", 30*24*time.Hour)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.mongo_db", "cipherbox")
	v.SetDefault("storage.state_collection", "epoch_state")
	v.SetDefault("storage.audit_collection", "epoch_rotations")

	v.SetDefault("metrics.enabled", false)
}
