package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LimitsConfig is the fallback ceiling set applied when a client has no
// resolvable subscription or plan. Values use -1 for unlimited.
type LimitsConfig struct {
	MaxObligations    int64 `mapstructure:"maxObligations"`
	MaxDocuments      int64 `mapstructure:"maxDocuments"`
	MaxExpenseRecords int64 `mapstructure:"maxExpenseRecords"`
	MaxStorageMB      int64 `mapstructure:"maxStorageMb"`
}

// DefaultLimitsConfig is deliberately conservative: a client without a
// resolvable plan should not be able to create resources without bound.
func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		MaxObligations:    20,
		MaxDocuments:      20,
		MaxExpenseRecords: 20,
		MaxStorageMB:      100,
	}
}

// LimitsConfigHolder exposes the current fallback limits with hot reload.
type LimitsConfigHolder struct {
	current atomic.Value // holds LimitsConfig
}

func NewLimitsConfigHolder() (*LimitsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("limits")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/duebook/config") // Volume-mounted config
	v.AddConfigPath("/etc/duebook")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("DUEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLimitsConfig()
	v.SetDefault("limits.maxObligations", defaults.MaxObligations)
	v.SetDefault("limits.maxDocuments", defaults.MaxDocuments)
	v.SetDefault("limits.maxExpenseRecords", defaults.MaxExpenseRecords)
	v.SetDefault("limits.maxStorageMb", defaults.MaxStorageMB)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no config file: defaults apply
	}

	var cfg LimitsConfig
	if err := v.UnmarshalKey("limits", &cfg); err != nil {
		return nil, err
	}
	if err := validateLimitsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &LimitsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LimitsConfig
		if err := v.UnmarshalKey("limits", &updated); err != nil {
			log.Printf("[limits-config] reload failed: %v", err)
			return
		}
		if err := validateLimitsConfig(updated); err != nil {
			log.Printf("[limits-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[limits-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticLimitsConfigHolder returns a holder pinned to cfg, for tests.
func NewStaticLimitsConfigHolder(cfg LimitsConfig) *LimitsConfigHolder {
	holder := &LimitsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// Current returns the active fallback limits.
func (h *LimitsConfigHolder) Current() LimitsConfig {
	if h == nil {
		return DefaultLimitsConfig()
	}
	if cfg, ok := h.current.Load().(LimitsConfig); ok {
		return cfg
	}
	return DefaultLimitsConfig()
}

func validateLimitsConfig(cfg LimitsConfig) error {
	for _, v := range []int64{cfg.MaxObligations, cfg.MaxDocuments, cfg.MaxExpenseRecords, cfg.MaxStorageMB} {
		if v < -1 {
			return errors.New("limit values must be >= -1")
		}
	}
	return nil
}
