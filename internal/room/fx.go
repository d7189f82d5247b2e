package room

import (
	"github.com/shaghafhq/shaghaf/internal/room/service"
	"go.uber.org/fx"
)

var Module = fx.Module("room.service",
	fx.Provide(service.New),
)
