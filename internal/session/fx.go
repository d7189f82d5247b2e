package session

import (
	"github.com/shaghafhq/shaghaf/internal/session/repository"
	"github.com/shaghafhq/shaghaf/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
