package offerstep

import (
	"github.com/planhaus/planhaus/internal/offerstep/repository"
	"github.com/planhaus/planhaus/internal/offerstep/service"
	"go.uber.org/fx"
)

var Module = fx.Module("offerstep.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
