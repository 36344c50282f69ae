package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	calceventdomain "github.com/planhaus/planhaus/internal/calcevent/domain"
	"github.com/planhaus/planhaus/internal/compute/domain"
	"github.com/planhaus/planhaus/internal/compute/engine"
	"github.com/planhaus/planhaus/internal/config"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	offerstepdomain "github.com/planhaus/planhaus/internal/offerstep/domain"
	"github.com/planhaus/planhaus/internal/providers/objectstore"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	pkgdb "github.com/planhaus/planhaus/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Worker is a live engine process as the coordinator sees it.
type Worker interface {
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until exit and returns the exit code.
	Wait() int
	Kill() error
}

// Launcher prepares job inputs and spawns workers.
type Launcher interface {
	PrepareJob(jobID, planExt string, planBytes, jobJSON []byte) (string, error)
	Launch(jobID, planPath string, jobJSON []byte) (Worker, error)
}

// Uploader relays local worker artifacts to the object store, returning
// nil on failure.
type Uploader interface {
	Upload(ctx context.Context, offerID snowflake.ID, localPath string) *engine.Artifact
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Cfg       config.Config
	Repo      domain.Repository
	OfferRepo offerdomain.Repository
	StepRepo  offerstepdomain.Repository
	FileRepo  offerfiledomain.Repository
	Events    calceventdomain.Service
	Tenant    tenantdomain.Resolver
	Launcher  Launcher
	Relay     Uploader
	Store     objectstore.Store
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	timeout   time.Duration
	repo      domain.Repository
	offerRepo offerdomain.Repository
	stepRepo  offerstepdomain.Repository
	fileRepo  offerfiledomain.Repository
	events    calceventdomain.Service
	tenant    tenantdomain.Resolver
	launcher  Launcher
	relay     Uploader
	store     objectstore.Store

	mu    sync.Mutex
	procs map[snowflake.ID]Worker
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("compute.service"),
		genID:     p.GenID,
		timeout:   p.Cfg.Compute.Timeout,
		repo:      p.Repo,
		offerRepo: p.OfferRepo,
		stepRepo:  p.StepRepo,
		fileRepo:  p.FileRepo,
		events:    p.Events,
		tenant:    p.Tenant,
		launcher:  p.Launcher,
		relay:     p.Relay,
		store:     p.Store,
		procs:     map[snowflake.ID]Worker{},
	}
}

func (s *Service) Start(ctx context.Context, req domain.StartRequest) (domain.StartResponse, error) {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return domain.StartResponse{}, err
	}
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		return domain.StartResponse{}, err
	}

	if existing, err := s.repo.FindRunning(ctx, s.db, tenantID, req.OfferID); err != nil {
		return domain.StartResponse{}, err
	} else if existing != nil {
		return domain.StartResponse{RunID: existing.ID}, nil
	}

	run := domain.Run{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		OfferID:   req.OfferID,
		Status:    domain.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, &run); err != nil {
		// Lost the race against a concurrent start; the partial unique
		// index on running runs rejected the insert.
		if pkgdb.IsDuplicateKeyErr(err) {
			if existing, ferr := s.repo.FindRunning(ctx, s.db, tenantID, req.OfferID); ferr == nil && existing != nil {
				return domain.StartResponse{RunID: existing.ID}, nil
			}
		}
		return domain.StartResponse{}, err
	}

	if err := s.offerRepo.UpdateFields(ctx, s.db, tenantID, req.OfferID, map[string]interface{}{
		"status":     offerdomain.StatusProcessing,
		"updated_at": time.Now().UTC(),
	}); err != nil {
		s.log.Warn("offer status update failed", zap.Error(err))
	}

	proc, err := s.prepareAndSpawn(ctx, tenantID, req.OfferID, run.ID)
	if err != nil {
		s.events.Append(ctx, req.OfferID, run.ID, calceventdomain.LevelError,
			"Startup failed: "+err.Error(), nil)
		if ferr := s.failRun(ctx, tenantID, req.OfferID, run.ID, err.Error(), nil); ferr != nil {
			s.log.Error("failed to mark run as failed", zap.Error(ferr))
		}
		return domain.StartResponse{}, fmt.Errorf("%w: %v", domain.ErrStartFailed, err)
	}

	s.track(run.ID, proc)
	s.events.Append(ctx, req.OfferID, run.ID, calceventdomain.LevelInfo,
		"Pipeline initialized locally.", nil)

	go s.pumpOutput(tenantID, req.OfferID, run.ID, proc)
	go s.mirrorStderr(req.OfferID, proc)
	go s.watchExit(req.OfferID, run.ID, proc)

	return domain.StartResponse{RunID: run.ID}, nil
}

// prepareAndSpawn builds the job description from the offer's steps,
// stages the plan input locally, and launches the worker.
func (s *Service) prepareAndSpawn(ctx context.Context, tenantID, offerID, runID snowflake.ID) (Worker, error) {
	steps, err := s.stepRepo.ListByOffer(ctx, s.db, offerID)
	if err != nil {
		return nil, err
	}
	jobJSON, err := json.Marshal(engine.BuildJobData(steps))
	if err != nil {
		return nil, err
	}

	files, err := s.fileRepo.ListByOffer(ctx, s.db, offerID)
	if err != nil {
		return nil, err
	}
	plan := pickPlanFile(files)
	if plan == nil {
		return nil, domain.ErrNoPlanFile
	}

	planBytes, err := s.store.Download(ctx, plan.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("storage download failed: %w", err)
	}

	jobID := offerID.String()
	planPath, err := s.launcher.PrepareJob(jobID, planExt(*plan), planBytes, jobJSON)
	if err != nil {
		return nil, err
	}

	s.log.Info("spawning engine",
		zap.String("offer_id", jobID),
		zap.String("run_id", runID.String()),
		zap.String("plan", planPath))
	return s.launcher.Launch(jobID, planPath, jobJSON)
}

// pickPlanFile applies the plan input priority: an explicit architectural
// plan tag wins; otherwise the newest file with an image or PDF mime.
func pickPlanFile(files []offerfiledomain.OfferFile) *offerfiledomain.OfferFile {
	for i := range files {
		if files[i].Kind() == offerfiledomain.KindPlanArchitectural {
			return &files[i]
		}
	}
	for i := range files {
		mime := files[i].Mime()
		if strings.HasPrefix(mime, "image/") || mime == "application/pdf" {
			return &files[i]
		}
	}
	return nil
}

func planExt(plan offerfiledomain.OfferFile) string {
	if name := plan.Filename(); name != "" {
		if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
			return ext
		}
	}
	if plan.Mime() == "application/pdf" {
		return "pdf"
	}
	return "png"
}

// pumpOutput consumes the worker's stdout line by line, translating stage
// markers into events and relaying attached artifacts. Every append is
// best-effort.
func (s *Service) pumpOutput(tenantID, offerID, runID snowflake.ID, proc Worker) {
	ctx := context.Background()
	scanner := bufio.NewScanner(proc.Stdout())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		stage, ok := engine.ParseStageLine(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				s.log.Debug("engine output",
					zap.String("offer_id", offerID.String()),
					zap.String("line", line))
			}
			continue
		}

		payload := datatypes.JSONMap{}
		if stage.ImagePath != "" {
			if art := s.relay.Upload(ctx, offerID, stage.ImagePath); art != nil {
				payload["files"] = []interface{}{
					map[string]interface{}{
						"url":     art.URL,
						"mime":    art.Mime,
						"caption": art.Caption,
					},
				}
				if stage.FinalArtifact() && art.IsPdf() {
					s.registerOfferPdf(ctx, tenantID, offerID, art)
				}
			}
		}

		s.events.Append(ctx, offerID, runID, calceventdomain.LevelInfo,
			"["+stage.Name+"]", payload)
	}
	if err := scanner.Err(); err != nil {
		s.log.Warn("engine stdout read failed",
			zap.String("offer_id", offerID.String()),
			zap.Error(err))
	}
}

// registerOfferPdf records the generated deliverable so the export path
// can tell it apart from the uploaded plan input.
func (s *Service) registerOfferPdf(ctx context.Context, tenantID, offerID snowflake.ID, art *engine.Artifact) {
	file := offerfiledomain.OfferFile{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		OfferID:     offerID,
		StoragePath: art.StoragePath,
		Meta: datatypes.JSONMap{
			"filename": art.Caption,
			"kind":     string(offerfiledomain.KindOfferPdf),
			"mime":     "application/pdf",
			"size":     art.Size,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.fileRepo.Insert(ctx, s.db, &file); err != nil {
		s.log.Error("offer pdf registration failed",
			zap.String("offer_id", offerID.String()),
			zap.String("storage_path", art.StoragePath),
			zap.Error(err))
		return
	}
	s.log.Info("registered generated pdf",
		zap.String("offer_id", offerID.String()),
		zap.String("storage_path", art.StoragePath))
}

func (s *Service) mirrorStderr(offerID snowflake.ID, proc Worker) {
	scanner := bufio.NewScanner(proc.Stderr())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.log.Warn("engine stderr",
			zap.String("offer_id", offerID.String()),
			zap.String("line", scanner.Text()))
	}
}

// watchExit waits for the worker to exit and auto-fails the run on a
// non-zero code. Success is never implicit: exit code 0 with no explicit
// finish call leaves the run running. A watchdog force-fails runs that
// outlive the configured timeout.
func (s *Service) watchExit(offerID, runID snowflake.ID, proc Worker) {
	var watchdog *time.Timer
	if s.timeout > 0 {
		timeout := s.timeout
		watchdog = time.AfterFunc(timeout, func() {
			s.log.Warn("run exceeded timeout, killing worker",
				zap.String("run_id", runID.String()),
				zap.Duration("timeout", timeout))
			err := s.FinishFail(context.Background(), domain.FinishFailRequest{
				Principal: tenantdomain.EnginePrincipal(),
				OfferID:   offerID,
				RunID:     runID,
				Message:   fmt.Sprintf("Timed out after %s", timeout),
			})
			if err != nil {
				s.log.Error("timeout finish failed", zap.Error(err))
			}
			_ = proc.Kill()
		})
	}

	code := proc.Wait()
	if watchdog != nil {
		watchdog.Stop()
	}
	s.untrack(runID)
	s.log.Info("engine exit",
		zap.String("offer_id", offerID.String()),
		zap.String("run_id", runID.String()),
		zap.Int("code", code))

	if code != 0 {
		err := s.FinishFail(context.Background(), domain.FinishFailRequest{
			Principal: tenantdomain.EnginePrincipal(),
			OfferID:   offerID,
			RunID:     runID,
			Message:   fmt.Sprintf("Exit code %d", code),
		})
		if err != nil {
			s.log.Error("auto finish-fail failed",
				zap.String("run_id", runID.String()),
				zap.Error(err))
		}
	}
}

func (s *Service) FinishOk(ctx context.Context, req domain.FinishOkRequest) error {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return err
	}
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		return err
	}

	changed, err := s.repo.Finish(ctx, s.db, tenantID, req.RunID,
		domain.StatusDone, "", time.Now().UTC())
	if err != nil {
		return err
	}
	if !changed {
		// Already terminal, or unknown run: a late duplicate call is a
		// safe no-op.
		return nil
	}

	fields := map[string]interface{}{
		"status":     offerdomain.StatusReady,
		"updated_at": time.Now().UTC(),
	}
	if req.Result != nil {
		fields["result"] = req.Result
	}
	return s.offerRepo.UpdateFields(ctx, s.db, tenantID, req.OfferID, fields)
}

func (s *Service) FinishFail(ctx context.Context, req domain.FinishFailRequest) error {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return err
	}
	// Tolerate a vanished offer: updates below are tenant-scoped anyway.
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		s.log.Warn("finish-fail on missing offer",
			zap.String("offer_id", req.OfferID.String()))
	}
	return s.failRun(ctx, tenantID, req.OfferID, req.RunID, req.Message, req.Detail)
}

func (s *Service) failRun(ctx context.Context, tenantID, offerID, runID snowflake.ID, message string, detail datatypes.JSONMap) error {
	if message == "" {
		message = "failed"
	}

	changed, err := s.repo.Finish(ctx, s.db, tenantID, runID,
		domain.StatusFailed, message, time.Now().UTC())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := s.offerRepo.UpdateFields(ctx, s.db, tenantID, offerID, map[string]interface{}{
		"status":     offerdomain.StatusFailed,
		"updated_at": time.Now().UTC(),
	}); err != nil {
		s.log.Warn("offer status update failed", zap.Error(err))
	}

	s.events.Append(ctx, offerID, runID, calceventdomain.LevelError, message, detail)
	return nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelRequest) error {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return err
	}
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		return err
	}

	run, err := s.repo.FindByID(ctx, s.db, tenantID, req.RunID)
	if err != nil {
		return err
	}
	if run == nil {
		return domain.ErrRunNotFound
	}

	// Transition before killing so the exit watcher's auto-fail finds the
	// run already terminal and no-ops.
	changed, err := s.repo.Finish(ctx, s.db, tenantID, req.RunID,
		domain.StatusCancelled, "cancelled", time.Now().UTC())
	if err != nil {
		return err
	}
	if changed {
		if err := s.offerRepo.UpdateFields(ctx, s.db, tenantID, req.OfferID, map[string]interface{}{
			"status":     offerdomain.StatusDraft,
			"updated_at": time.Now().UTC(),
		}); err != nil {
			s.log.Warn("offer status update failed", zap.Error(err))
		}
		s.events.Append(ctx, req.OfferID, req.RunID, calceventdomain.LevelWarn,
			"[cancelled]", nil)
	}

	s.mu.Lock()
	proc := s.procs[req.RunID]
	delete(s.procs, req.RunID)
	s.mu.Unlock()
	if proc != nil {
		if err := proc.Kill(); err != nil {
			s.log.Warn("worker kill failed",
				zap.String("run_id", req.RunID.String()),
				zap.Error(err))
		}
	}
	return nil
}

func (s *Service) track(runID snowflake.ID, proc Worker) {
	s.mu.Lock()
	s.procs[runID] = proc
	s.mu.Unlock()
}

func (s *Service) untrack(runID snowflake.ID) {
	s.mu.Lock()
	delete(s.procs, runID)
	s.mu.Unlock()
}
