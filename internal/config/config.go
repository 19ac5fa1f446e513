// Package config loads the farmkeep daemon's own configuration file.
// Share config documents are handled separately by shareconf.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/farmkeep/farmkeep/internal/logger"
)

// Config is the top-level TOML structure.
//
//	listen = "127.0.0.1:4501"
//	base_path = "/api"
//	worker_command = "farmer"
//	snapshot_path = "/var/lib/farmkeep/snapshot.json"
//	killall_grace = "3s"
//	history_dsn = "sqlite:///var/lib/farmkeep/history.db"
//
//	[log]
//	dir = "/var/log/farmkeep"
type Config struct {
	Listen        string            `toml:"listen" mapstructure:"listen"`
	BasePath      string            `toml:"base_path" mapstructure:"base_path"`
	WorkerCommand string            `toml:"worker_command" mapstructure:"worker_command"`
	SnapshotPath  string            `toml:"snapshot_path" mapstructure:"snapshot_path"`
	KillallGrace  time.Duration     `toml:"killall_grace" mapstructure:"killall_grace"`
	HistoryDSN    string            `toml:"history_dsn" mapstructure:"history_dsn"`
	Log           logger.SinkConfig `toml:"log" mapstructure:"log"`
}

// Defaults applied when fields are absent from the file.
const (
	DefaultListen       = "127.0.0.1:4501"
	DefaultBasePath     = "/api"
	DefaultSnapshotPath = "snapshot.json"
)

// Load reads the daemon config at path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Listen:       DefaultListen,
		BasePath:     DefaultBasePath,
		SnapshotPath: DefaultSnapshotPath,
	}
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
