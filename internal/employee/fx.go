package employee

import (
	"github.com/shaghafhq/shaghaf/internal/employee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("employee.service",
	fx.Provide(service.New),
)
