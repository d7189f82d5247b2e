package invoice

import (
	"github.com/shaghafhq/shaghaf/internal/invoice/repository"
	"github.com/shaghafhq/shaghaf/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
