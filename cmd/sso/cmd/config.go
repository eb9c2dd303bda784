package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config is the on-disk configuration shared by the server and broker
// commands. Broker id/secret pairs and user seeds are configuration
// inputs, not part of the protocol itself.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Broker BrokerConfig `mapstructure:"broker"`
}

// ServerConfig configures `sso server`.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
	// SessionDB is the path of the bbolt session database. Empty means
	// sessions are kept in memory and lost on restart.
	SessionDB string              `mapstructure:"session_db"`
	Redis     RedisConfig         `mapstructure:"redis"`
	Brokers   []BrokerCredentials `mapstructure:"brokers"`
	Users     []UserSeed          `mapstructure:"users"`
}

// RedisConfig selects the Redis link cache backend. An empty Addr falls
// back to the in-memory cache, which only suits single-process runs.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BrokerCredentials provisions one broker on the server.
type BrokerCredentials struct {
	ID     string `mapstructure:"id"`
	Secret string `mapstructure:"secret"`
}

// UserSeed provisions one user in the stand-in directory.
type UserSeed struct {
	ID       string `mapstructure:"id"`
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	FullName string `mapstructure:"fullname"`
	Password string `mapstructure:"password"`
}

// BrokerConfig configures `sso broker`.
type BrokerConfig struct {
	Listen    string `mapstructure:"listen"`
	ID        string `mapstructure:"id"`
	Secret    string `mapstructure:"secret"`
	ServerURL string `mapstructure:"server_url"`
}

func loadConfig() (*Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sso")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sso")
	}
	v.SetEnvPrefix("SSO")
	v.AutomaticEnv()

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("broker.listen", ":8081")
	v.SetDefault("broker.server_url", "http://localhost:8080/")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No config file is fine; flags and env cover the rest.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
