package tenant

import (
	"github.com/planhaus/planhaus/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(service.New),
)
