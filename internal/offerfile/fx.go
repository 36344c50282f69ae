package offerfile

import (
	"github.com/planhaus/planhaus/internal/offerfile/repository"
	"github.com/planhaus/planhaus/internal/offerfile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("offerfile.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
