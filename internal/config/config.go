// Package config loads the relay's runtime configuration via viper,
// supporting a config file, environment overrides, and hot-reload of the
// fields safe to change without a restart (the registry tunables only;
// TURN settings and listen addresses are read once at startup).
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pulsebeam-relay/signaling-relay/internal/domain/registry"
)

// TURNConfig configures the dynamic ICE credential provider in infra/turn.
// Empty Endpoint means the relay falls back to the static STUN-only list.
type TURNConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	StaticAuthSecret string        `mapstructure:"static_auth_secret"`
	CredentialTTL    time.Duration `mapstructure:"credential_ttl"`
}

// Config is the relay's complete runtime configuration.
type Config struct {
	GRPCListenAddr string `mapstructure:"grpc_listen_addr"`
	HTTPListenAddr string `mapstructure:"http_listen_addr"`

	Registry registry.Config `mapstructure:"-"`
	TURN     TURNConfig      `mapstructure:"turn"`
}

// registryFields mirrors registry.Config with mapstructure tags, since
// time.Duration and the exported Config live in a package that doesn't
// itself depend on viper.
type registryFields struct {
	MaxGroups             int           `mapstructure:"max_groups"`
	MaxPeersPerGroup      int           `mapstructure:"max_peers_per_group"`
	MailboxCapacity       int           `mapstructure:"mailbox_capacity"`
	SessionPollTimeout    time.Duration `mapstructure:"session_poll_timeout"`
	SessionPollLatency    time.Duration `mapstructure:"session_poll_latency"`
	SessionBatchTimeout   time.Duration `mapstructure:"session_batch_timeout"`
	KeepAliveInterval     time.Duration `mapstructure:"keep_alive_interval"`
	EvictionSweepInterval time.Duration `mapstructure:"eviction_sweep_interval"`
}

func setDefaults(v *viper.Viper) {
	def := registry.DefaultConfig()
	v.SetDefault("grpc_listen_addr", "[::]:3000")
	v.SetDefault("http_listen_addr", "[::]:3001")
	v.SetDefault("registry.max_groups", def.MaxGroups)
	v.SetDefault("registry.max_peers_per_group", def.MaxPeersPerGroup)
	v.SetDefault("registry.mailbox_capacity", def.MailboxCapacity)
	v.SetDefault("registry.session_poll_timeout", def.SessionPollTimeout)
	v.SetDefault("registry.session_poll_latency", def.SessionPollLatency)
	v.SetDefault("registry.session_batch_timeout", def.SessionBatchTimeout)
	v.SetDefault("registry.keep_alive_interval", def.KeepAliveInterval)
	v.SetDefault("registry.eviction_sweep_interval", def.EvictionSweepInterval)
	v.SetDefault("turn.credential_ttl", 12*time.Hour)
}

// Load reads config from configFile (if non-empty), environment variables
// prefixed RELAY_, and flags, in that precedence order (flags win).
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("relay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var rf registryFields
	if err := v.UnmarshalKey("registry", &rf); err != nil {
		return nil, err
	}

	cfg := &Config{
		GRPCListenAddr: v.GetString("grpc_listen_addr"),
		HTTPListenAddr: v.GetString("http_listen_addr"),
		Registry: registry.Config{
			MaxGroups:             rf.MaxGroups,
			MaxPeersPerGroup:      rf.MaxPeersPerGroup,
			MailboxCapacity:       rf.MailboxCapacity,
			SessionPollTimeout:    rf.SessionPollTimeout,
			SessionPollLatency:    rf.SessionPollLatency,
			SessionBatchTimeout:   rf.SessionBatchTimeout,
			KeepAliveInterval:     rf.KeepAliveInterval,
			EvictionSweepInterval: rf.EvictionSweepInterval,
		},
	}
	if err := v.UnmarshalKey("turn", &cfg.TURN); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WatchRegistry hot-reloads the registry tunables whenever configFile
// changes on disk, invoking onChange with the freshly parsed values. TURN
// and listen addresses are intentionally excluded: they're bound at
// listener-creation time and a restart is required for those.
func WatchRegistry(configFile string, logger *slog.Logger, onChange func(registry.Config)) error {
	if configFile == "" {
		return nil
	}
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			logger.Warn("CONFIG_RELOAD_FAILED", slog.Any("err", err))
			return
		}
		logger.Info("CONFIG_RELOADED", slog.String("file", e.Name))
		onChange(cfg.Registry)
	})
	v.WatchConfig()
	return nil
}
