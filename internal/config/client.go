package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Client configures the terminal client and its SDK.
type Client struct {
	Server       string        `mapstructure:"server"`
	SessionPath  string        `mapstructure:"session_path"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DefaultClientDir is where the config file and the session database live.
func DefaultClientDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "votify")
}

// LoadClient reads path (or config.yaml in DefaultClientDir when path is empty)
// and overlays VOTIFY_* environment variables. A missing file is not an error.
func LoadClient(path string) (*Client, error) {
	v := viper.New()
	dir := DefaultClientDir()

	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("session_path", filepath.Join(dir, "session.db"))
	v.SetDefault("sync_interval", time.Second)
	v.SetDefault("timeout", 10*time.Second)

	v.SetEnvPrefix("votify")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read client config: %w", err)
		}
	}

	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode client config: %w", err)
	}
	cfg.Server = strings.TrimRight(cfg.Server, "/")
	return &cfg, nil
}
