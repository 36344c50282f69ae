package export

import (
	"github.com/planhaus/planhaus/internal/export/service"
	"go.uber.org/fx"
)

var Module = fx.Module("export.service",
	fx.Provide(service.New),
)
