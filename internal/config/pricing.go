package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig holds per-service sell margins applied on top of the
// aggregator cost price during catalog imports.
type PricingConfig struct {
	Margins       []Margin `mapstructure:"margins"`
	DefaultMargin float64  `mapstructure:"defaultMargin"`
}

// Margin is a multiplier for one service type, e.g. {data 1.05}.
type Margin struct {
	ServiceType string  `mapstructure:"serviceType"`
	Multiplier  float64 `mapstructure:"multiplier"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		DefaultMargin: 1.03,
		Margins: []Margin{
			{ServiceType: "data", Multiplier: 1.05},
			{ServiceType: "airtime", Multiplier: 1.02},
			{ServiceType: "tv", Multiplier: 1.03},
			{ServiceType: "electric", Multiplier: 1.01},
			{ServiceType: "betting", Multiplier: 1.02},
			{ServiceType: "education", Multiplier: 1.04},
		},
	}
}

// PricingHolder exposes the current pricing config, hot reloaded on file change.
type PricingHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingHolder() (*PricingHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/vendora/config")
	v.AddConfigPath("/etc/vendora")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VENDORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPricingConfig()
		v.SetDefault("pricing.margins", defaults.Margins)
		v.SetDefault("pricing.defaultMargin", defaults.DefaultMargin)
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Current returns the active pricing config.
func (h *PricingHolder) Current() PricingConfig {
	if h == nil {
		return DefaultPricingConfig()
	}
	if cfg, ok := h.current.Load().(PricingConfig); ok {
		return cfg
	}
	return DefaultPricingConfig()
}

// MarginFor returns the sell multiplier for a service type.
func (c PricingConfig) MarginFor(serviceType string) float64 {
	serviceType = strings.ToLower(strings.TrimSpace(serviceType))
	for _, m := range c.Margins {
		if strings.ToLower(m.ServiceType) == serviceType && m.Multiplier > 0 {
			return m.Multiplier
		}
	}
	if c.DefaultMargin > 0 {
		return c.DefaultMargin
	}
	return 1
}

func validatePricingConfig(cfg PricingConfig) error {
	if cfg.DefaultMargin < 0 {
		return errors.New("pricing default margin must not be negative")
	}
	for _, m := range cfg.Margins {
		if strings.TrimSpace(m.ServiceType) == "" {
			return errors.New("pricing margin missing service type")
		}
		if m.Multiplier < 0 {
			return errors.New("pricing margin multiplier must not be negative")
		}
	}
	return nil
}
