package calcevent

import (
	"github.com/planhaus/planhaus/internal/calcevent/repository"
	"github.com/planhaus/planhaus/internal/calcevent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("calcevent.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
