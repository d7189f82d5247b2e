package product

import (
	"github.com/shaghafhq/shaghaf/internal/product/repository"
	"github.com/shaghafhq/shaghaf/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
