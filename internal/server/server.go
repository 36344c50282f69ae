package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/planhaus/planhaus/internal/calcevent"
	calceventdomain "github.com/planhaus/planhaus/internal/calcevent/domain"
	"github.com/planhaus/planhaus/internal/compute"
	computedomain "github.com/planhaus/planhaus/internal/compute/domain"
	"github.com/planhaus/planhaus/internal/config"
	"github.com/planhaus/planhaus/internal/export"
	exportdomain "github.com/planhaus/planhaus/internal/export/domain"
	"github.com/planhaus/planhaus/internal/observability"
	"github.com/planhaus/planhaus/internal/offer"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	"github.com/planhaus/planhaus/internal/offerfile"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	"github.com/planhaus/planhaus/internal/offerstep"
	offerstepdomain "github.com/planhaus/planhaus/internal/offerstep/domain"
	"github.com/planhaus/planhaus/internal/plancheck"
	plancheckdomain "github.com/planhaus/planhaus/internal/plancheck/domain"
	"github.com/planhaus/planhaus/internal/providers/objectstore"
	"github.com/planhaus/planhaus/internal/tenant"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	observability.Module,
	fx.Provide(registerGin),
	tenant.Module,
	objectstore.Module,
	offer.Module,
	offerstep.Module,
	offerfile.Module,
	calcevent.Module,
	compute.Module,
	export.Module,
	plancheck.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *observability.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log))
	r.Use(metrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry,
		promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, metrics *observability.Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	genID        *snowflake.Node
	offerSvc     offerdomain.Service
	stepSvc      offerstepdomain.Service
	fileSvc      offerfiledomain.Service
	computeSvc   computedomain.Service
	eventSvc     calceventdomain.Service
	exportSvc    exportdomain.Service
	planCheckSvc plancheckdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	GenID        *snowflake.Node
	OfferSvc     offerdomain.Service
	StepSvc      offerstepdomain.Service
	FileSvc      offerfiledomain.Service
	ComputeSvc   computedomain.Service
	EventSvc     calceventdomain.Service
	ExportSvc    exportdomain.Service
	PlanCheckSvc plancheckdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		genID:        p.GenID,
		offerSvc:     p.OfferSvc,
		stepSvc:      p.StepSvc,
		fileSvc:      p.FileSvc,
		computeSvc:   p.ComputeSvc,
		eventSvc:     p.EventSvc,
		exportSvc:    p.ExportSvc,
		planCheckSvc: p.PlanCheckSvc,
	}

	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	offers := s.engine.Group("/offers", s.AuthRequired())
	offers.POST("", s.CreateOffer)
	offers.GET("", s.ListOffers)
	offers.GET("/:id", s.GetOffer)
	offers.PATCH("/:id", s.UpdateOffer)
	offers.POST("/:id/steps", s.SaveOfferStep)
	offers.POST("/:id/files/presign", s.PresignOfferFile)
	offers.POST("/:id/files", s.RegisterOfferFile)
	offers.POST("/:id/compute", s.StartCompute)
	offers.POST("/:id/compute/cancel", s.CancelCompute)
	offers.GET("/:id/export", s.ExportOffer)
	offers.GET("/:id/export-url", s.ExportOfferURL)

	// The engine reports back over the same routes with a shared secret.
	engineOffers := s.engine.Group("/offers", s.AuthOrEngineRequired())
	engineOffers.POST("/:id/compute/finish-ok", s.FinishComputeOk)
	engineOffers.POST("/:id/compute/finish-fail", s.FinishComputeFail)

	events := s.engine.Group("/calc-events", s.AuthRequired())
	events.GET("", s.ListCalcEvents)
	events.GET("/history", s.CalcEventHistory)

	s.engine.POST("/validate-plan", s.AuthRequired(), s.ValidatePlan)
}
