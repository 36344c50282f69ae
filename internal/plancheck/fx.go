package plancheck

import (
	"github.com/planhaus/planhaus/internal/plancheck/classifier"
	"github.com/planhaus/planhaus/internal/plancheck/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plancheck.service",
	fx.Provide(classifier.NewVision),
	fx.Provide(service.New),
)
