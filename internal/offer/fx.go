package offer

import (
	"github.com/planhaus/planhaus/internal/offer/repository"
	"github.com/planhaus/planhaus/internal/offer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("offer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
