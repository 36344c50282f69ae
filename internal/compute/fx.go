package compute

import (
	"github.com/planhaus/planhaus/internal/compute/engine"
	"github.com/planhaus/planhaus/internal/compute/repository"
	"github.com/planhaus/planhaus/internal/compute/service"
	"go.uber.org/fx"
)

var Module = fx.Module("compute.service",
	fx.Provide(repository.Provide),
	fx.Provide(engine.NewRunner),
	fx.Provide(engine.NewRelay),
	fx.Provide(func(r *engine.Runner) service.Launcher { return runnerLauncher{r} }),
	fx.Provide(func(r *engine.Relay) service.Uploader { return r }),
	fx.Provide(service.New),
)

// runnerLauncher adapts the concrete runner to the coordinator's Launcher
// interface so tests can substitute an in-memory worker.
type runnerLauncher struct {
	r *engine.Runner
}

func (l runnerLauncher) PrepareJob(jobID, planExt string, planBytes, jobJSON []byte) (string, error) {
	return l.r.PrepareJob(jobID, planExt, planBytes, jobJSON)
}

func (l runnerLauncher) Launch(jobID, planPath string, jobJSON []byte) (service.Worker, error) {
	return l.r.Launch(jobID, planPath, jobJSON)
}
