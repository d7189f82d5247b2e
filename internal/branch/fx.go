package branch

import (
	"github.com/shaghafhq/shaghaf/internal/branch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("branch.service",
	fx.Provide(service.New),
)
