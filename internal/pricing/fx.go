package pricing

import (
	"github.com/shaghafhq/shaghaf/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing",
	fx.Provide(func(cfg config.Config) (*Holder, error) {
		return NewHolder(cfg.PricingConfigPath)
	}),
)
