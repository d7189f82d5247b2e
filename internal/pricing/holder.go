package pricing

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultPolicy returns the rates used when no pricing file is present.
func DefaultPolicy() Policy {
	return Policy{
		FirstHourRate:       4000,
		AdditionalHourRate:  3000,
		MaxAdditionalCharge: 10000,
	}
}

// Holder exposes the active Policy and reloads it when the pricing file
// changes on disk.
type Holder struct {
	current atomic.Value // holds Policy
}

// NewHolder reads pricing.yml and watches it for changes. A missing file
// falls back to defaults; an invalid reload is ignored.
func NewHolder(configPath string) (*Holder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	if path := strings.TrimSpace(configPath); path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("/etc/shaghaf")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHAGHAF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPolicy()
		v.SetDefault("pricing.firstHourRate", defaults.FirstHourRate)
		v.SetDefault("pricing.additionalHourRate", defaults.AdditionalHourRate)
		v.SetDefault("pricing.maxAdditionalCharge", defaults.MaxAdditionalCharge)
	}

	var policy Policy
	if err := v.UnmarshalKey("pricing", &policy); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	holder := &Holder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := updated.Validate(); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Get returns the active Policy.
func (h *Holder) Get() Policy {
	return h.current.Load().(Policy)
}

// NewStaticHolder returns a Holder pinned to the given policy, for tests.
func NewStaticHolder(p Policy) *Holder {
	holder := &Holder{}
	holder.current.Store(p)
	return holder
}
