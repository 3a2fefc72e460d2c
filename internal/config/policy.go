package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Policy holds the submission policy knobs. Both values default to the
// reference deployment: at most 5 reports per reporter in a rolling 24h
// lookback.
type Policy struct {
	MaxPerWindow int
	Window       time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxPerWindow: 5,
		Window:       24 * time.Hour,
	}
}

// PolicyHolder exposes the current policy and swaps it atomically when the
// config file changes on disk.
type PolicyHolder struct {
	current atomic.Value // holds Policy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("watchdog")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/watchdog")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WATCHDOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("report.maxPerWindow", defaults.MaxPerWindow)
	v.SetDefault("report.window", defaults.Window.String())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := readPolicy(v)
	if err := validatePolicy(cfg); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := readPolicy(v)
		if err := validatePolicy(updated); err != nil {
			log.Printf("[policy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func readPolicy(v *viper.Viper) Policy {
	return Policy{
		MaxPerWindow: v.GetInt("report.maxPerWindow"),
		Window:       v.GetDuration("report.window"),
	}
}

func validatePolicy(p Policy) error {
	if p.MaxPerWindow <= 0 {
		return errors.New("report.maxPerWindow must be positive")
	}
	if p.Window <= 0 {
		return errors.New("report.window must be positive")
	}
	return nil
}
