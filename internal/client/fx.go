package client

import (
	"github.com/shaghafhq/shaghaf/internal/client/repository"
	"github.com/shaghafhq/shaghaf/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
