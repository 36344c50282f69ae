package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	calceventdomain "github.com/planhaus/planhaus/internal/calcevent/domain"
	calceventrepo "github.com/planhaus/planhaus/internal/calcevent/repository"
	calceventservice "github.com/planhaus/planhaus/internal/calcevent/service"
	"github.com/planhaus/planhaus/internal/compute/domain"
	"github.com/planhaus/planhaus/internal/compute/engine"
	computerepo "github.com/planhaus/planhaus/internal/compute/repository"
	"github.com/planhaus/planhaus/internal/config"
	"github.com/planhaus/planhaus/internal/migration"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	offerrepo "github.com/planhaus/planhaus/internal/offer/repository"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	offerfilerepo "github.com/planhaus/planhaus/internal/offerfile/repository"
	offersteprepo "github.com/planhaus/planhaus/internal/offerstep/repository"
	"github.com/planhaus/planhaus/internal/providers/objectstore"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	tenantservice "github.com/planhaus/planhaus/internal/tenant/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.Run(gdb))
	return gdb
}

type fakeWorker struct {
	stdoutR  *io.PipeReader
	stdoutW  *io.PipeWriter
	stderrR  *io.PipeReader
	stderrW  *io.PipeWriter
	exit     chan int
	killed   chan struct{}
	killOnce sync.Once
}

func newFakeWorker() *fakeWorker {
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	return &fakeWorker{
		stdoutR: stdoutR,
		stdoutW: stdoutW,
		stderrR: stderrR,
		stderrW: stderrW,
		exit:    make(chan int, 1),
		killed:  make(chan struct{}),
	}
}

func (w *fakeWorker) Stdout() io.Reader { return w.stdoutR }
func (w *fakeWorker) Stderr() io.Reader { return w.stderrR }
func (w *fakeWorker) Wait() int         { return <-w.exit }

func (w *fakeWorker) Kill() error {
	w.killOnce.Do(func() {
		close(w.killed)
		_ = w.stdoutW.Close()
		_ = w.stderrW.Close()
		select {
		case w.exit <- -1:
		default:
		}
	})
	return nil
}

func (w *fakeWorker) emit(t *testing.T, line string) {
	t.Helper()
	_, err := w.stdoutW.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

func (w *fakeWorker) finish(code int) {
	_ = w.stdoutW.Close()
	_ = w.stderrW.Close()
	select {
	case w.exit <- code:
	default:
	}
}

type fakeLauncher struct {
	mu      sync.Mutex
	workers []*fakeWorker
}

func (l *fakeLauncher) PrepareJob(jobID, planExt string, planBytes, jobJSON []byte) (string, error) {
	return filepath.Join(os.TempDir(), jobID+"_plan."+planExt), nil
}

func (l *fakeLauncher) Launch(jobID, planPath string, jobJSON []byte) (Worker, error) {
	w := newFakeWorker()
	l.mu.Lock()
	l.workers = append(l.workers, w)
	l.mu.Unlock()
	return w, nil
}

func (l *fakeLauncher) worker(t *testing.T, i int) *fakeWorker {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.Greater(t, len(l.workers), i)
	return l.workers[i]
}

type fixture struct {
	db       *gorm.DB
	store    *objectstore.MemoryStore
	launcher *fakeLauncher
	svc      domain.Service
	genID    *snowflake.Node
	tenantID snowflake.ID
	otherTen snowflake.ID
	offerID  snowflake.ID
	user     tenantdomain.Principal
	outsider tenantdomain.Principal
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop()
	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)

	resolver := tenantservice.New(tenantservice.Params{DB: db, Log: log})
	events := calceventservice.New(calceventservice.Params{
		DB:     db,
		Log:    log,
		Repo:   calceventrepo.Provide(),
		Tenant: resolver,
	})
	store := objectstore.NewMemory()
	launcher := &fakeLauncher{}

	svc := New(Params{
		DB:        db,
		Log:       log,
		GenID:     genID,
		Cfg:       config.Config{Compute: config.ComputeConfig{Timeout: timeout}},
		Repo:      computerepo.Provide(),
		OfferRepo: offerrepo.Provide(),
		StepRepo:  offersteprepo.Provide(),
		FileRepo:  offerfilerepo.Provide(),
		Events:    events,
		Tenant:    resolver,
		Launcher:  launcher,
		Relay:     engine.NewRelay(store, log),
		Store:     store,
	})

	f := &fixture{
		db:       db,
		store:    store,
		launcher: launcher,
		svc:      svc,
		genID:    genID,
		tenantID: genID.Generate(),
		otherTen: genID.Generate(),
		offerID:  genID.Generate(),
		user:     tenantdomain.UserPrincipal("user-1"),
		outsider: tenantdomain.UserPrincipal("user-2"),
	}

	require.NoError(t, db.Create(&tenantdomain.Profile{ID: "user-1", TenantID: f.tenantID}).Error)
	require.NoError(t, db.Create(&tenantdomain.Profile{ID: "user-2", TenantID: f.otherTen}).Error)
	require.NoError(t, db.Create(&offerdomain.Offer{
		ID:        f.offerID,
		TenantID:  f.tenantID,
		Title:     "Casa test",
		Status:    offerdomain.StatusDraft,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}).Error)
	return f
}

func (f *fixture) seedPlanFile(t *testing.T) {
	t.Helper()
	path := "plans/input.png"
	f.store.Put(path, []byte("png-bytes"), "image/png")
	require.NoError(t, f.db.Create(&offerfiledomain.OfferFile{
		ID:          f.genID.Generate(),
		TenantID:    f.tenantID,
		OfferID:     f.offerID,
		StoragePath: path,
		Meta: datatypes.JSONMap{
			"kind":     "planArhitectural",
			"mime":     "image/png",
			"filename": "input.png",
		},
		CreatedAt: time.Now().UTC(),
	}).Error)
}

func (f *fixture) run(t *testing.T, runID snowflake.ID) domain.Run {
	t.Helper()
	var run domain.Run
	require.NoError(t, f.db.Where("id = ?", runID).First(&run).Error)
	return run
}

func (f *fixture) offer(t *testing.T) offerdomain.Offer {
	t.Helper()
	var offer offerdomain.Offer
	require.NoError(t, f.db.Where("id = ?", f.offerID).First(&offer).Error)
	return offer
}

func (f *fixture) events(t *testing.T, runID snowflake.ID) []calceventdomain.Event {
	t.Helper()
	var items []calceventdomain.Event
	require.NoError(t, f.db.Where("run_id = ?", runID).Order("id asc").Find(&items).Error)
	return items
}

func TestStartIsIdempotentWhileRunning(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPlanFile(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.NoError(t, err)
	require.NotZero(t, first.RunID)

	second, err := f.svc.Start(ctx, domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.NoError(t, err)
	assert.Equal(t, first.RunID, second.RunID)

	var running int64
	require.NoError(t, f.db.Model(&domain.Run{}).
		Where("offer_id = ? AND status = ?", f.offerID, domain.StatusRunning).
		Count(&running).Error)
	assert.Equal(t, int64(1), running)
	assert.Equal(t, offerdomain.StatusProcessing, f.offer(t).Status)

	f.launcher.worker(t, 0).finish(0)
}

func TestStartCrossTenantReadsAsNotFound(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPlanFile(t)

	_, err := f.svc.Start(context.Background(),
		domain.StartRequest{Principal: f.outsider, OfferID: f.offerID})
	assert.ErrorIs(t, err, tenantdomain.ErrOfferNotFound)
}

func TestStartWithoutPlanFails(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.ErrorIs(t, err, domain.ErrStartFailed)

	var run domain.Run
	require.NoError(t, f.db.Where("offer_id = ?", f.offerID).First(&run).Error)
	assert.Equal(t, domain.StatusFailed, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, offerdomain.StatusFailed, f.offer(t).Status)

	events := f.events(t, run.ID)
	require.NotEmpty(t, events)
	assert.Equal(t, calceventdomain.LevelError, events[0].Level)
	assert.Contains(t, events[0].Message, "Startup failed")
}

func TestStageMarkersBecomeEvents(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPlanFile(t)
	ctx := context.Background()

	resp, err := f.svc.Start(ctx, domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.NoError(t, err)

	w := f.launcher.worker(t, 0)
	w.emit(t, "loading model weights")
	w.emit(t, ">>> UI:STAGE:wall_detection")
	w.emit(t, ">>> UI:STAGE:scale_detection")

	require.Eventually(t, func() bool {
		return len(f.events(t, resp.RunID)) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	events := f.events(t, resp.RunID)
	assert.Equal(t, "Pipeline initialized locally.", events[0].Message)
	assert.Equal(t, "[wall_detection]", events[1].Message)
	assert.Equal(t, "[scale_detection]", events[2].Message)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].ID, events[i-1].ID)
	}

	w.finish(0)
}

func TestFinalPdfStageRegistersOfferFile(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPlanFile(t)
	ctx := context.Background()

	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "offer.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644))
	pngPath := filepath.Join(dir, "render.png")
	require.NoError(t, os.WriteFile(pngPath, []byte("png"), 0o644))

	resp, err := f.svc.Start(ctx, domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.NoError(t, err)

	w := f.launcher.worker(t, 0)
	// An image on a non-final stage must not become a deliverable.
	w.emit(t, ">>> UI:STAGE:render|IMG:"+pngPath)
	w.emit(t, ">>> UI:STAGE:pdf_generation|IMG:"+pdfPath)

	require.Eventually(t, func() bool {
		var count int64
		_ = f.db.Model(&offerfiledomain.OfferFile{}).
			Where("offer_id = ?", f.offerID).
			Count(&count).Error
		return count >= 2 // seeded plan + registered pdf
	}, 2*time.Second, 10*time.Millisecond)

	var files []offerfiledomain.OfferFile
	require.NoError(t, f.db.Where("offer_id = ?", f.offerID).Find(&files).Error)

	var pdfs []offerfiledomain.OfferFile
	for _, file := range files {
		if file.Kind() == offerfiledomain.KindOfferPdf {
			pdfs = append(pdfs, file)
		}
	}
	require.Len(t, pdfs, 1)
	assert.Equal(t, "application/pdf", pdfs[0].Mime())
	assert.Equal(t, "offer.pdf", pdfs[0].Filename())
	assert.True(t, f.store.Has(pdfs[0].StoragePath))
	assert.True(t, strings.HasPrefix(pdfs[0].StoragePath,
		"calc_runs/"+f.offerID.String()+"/"))

	// The png relays into the event payload but never as an offerPdf.
	events := f.events(t, resp.RunID)
	var renderEvent *calceventdomain.Event
	for i := range events {
		if events[i].Message == "[render]" {
			renderEvent = &events[i]
		}
	}
	require.NotNil(t, renderEvent)
	assert.Contains(t, renderEvent.Payload, "files")

	w.finish(0)
}

func TestNonZeroExitAutoFails(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPlanFile(t)

	resp, err := f.svc.Start(context.Background(),
		domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.NoError(t, err)

	f.launcher.worker(t, 0).finish(2)

	require.Eventually(t, func() bool {
		return f.run(t, resp.RunID).Status == domain.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	run := f.run(t, resp.RunID)
	assert.Equal(t, "Exit code 2", run.Error)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, offerdomain.StatusFailed, f.offer(t).Status)

	events := f.events(t, resp.RunID)
	last := events[len(events)-1]
	assert.Equal(t, calceventdomain.LevelError, last.Level)
	assert.Equal(t, "Exit code 2", last.Message)
}

func TestZeroExitDoesNotImplySuccess(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPlanFile(t)

	resp, err := f.svc.Start(context.Background(),
		domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.NoError(t, err)

	f.launcher.worker(t, 0).finish(0)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, domain.StatusRunning, f.run(t, resp.RunID).Status)
}

func TestFinishOkWinsOverLateAutoFail(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPlanFile(t)
	ctx := context.Background()

	resp, err := f.svc.Start(ctx, domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.NoError(t, err)

	// The engine reports success over HTTP before exiting.
	require.NoError(t, f.svc.FinishOk(ctx, domain.FinishOkRequest{
		Principal: tenantdomain.EnginePrincipal(),
		OfferID:   f.offerID,
		RunID:     resp.RunID,
		Result:    datatypes.JSONMap{"total": 125000.0},
	}))

	run := f.run(t, resp.RunID)
	assert.Equal(t, domain.StatusDone, run.Status)
	require.NotNil(t, run.FinishedAt)

	offer := f.offer(t)
	assert.Equal(t, offerdomain.StatusReady, offer.Status)
	assert.Equal(t, 125000.0, offer.Result["total"])

	// A racing exit-watcher fail must be a no-op on the terminal run.
	f.launcher.worker(t, 0).finish(1)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, domain.StatusDone, f.run(t, resp.RunID).Status)
	assert.Equal(t, offerdomain.StatusReady, f.offer(t).Status)

	// So is an explicit duplicate finish.
	require.NoError(t, f.svc.FinishFail(ctx, domain.FinishFailRequest{
		Principal: tenantdomain.EnginePrincipal(),
		OfferID:   f.offerID,
		RunID:     resp.RunID,
		Message:   "late duplicate",
	}))
	assert.Equal(t, domain.StatusDone, f.run(t, resp.RunID).Status)
}

func TestCancelKillsWorkerAndMarksRun(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPlanFile(t)
	ctx := context.Background()

	resp, err := f.svc.Start(ctx, domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.NoError(t, err)
	w := f.launcher.worker(t, 0)

	require.NoError(t, f.svc.Cancel(ctx, domain.CancelRequest{
		Principal: f.user,
		OfferID:   f.offerID,
		RunID:     resp.RunID,
	}))

	select {
	case <-w.killed:
	case <-time.After(time.Second):
		t.Fatal("worker was not killed")
	}

	run := f.run(t, resp.RunID)
	assert.Equal(t, domain.StatusCancelled, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, offerdomain.StatusDraft, f.offer(t).Status)

	events := f.events(t, resp.RunID)
	last := events[len(events)-1]
	assert.Equal(t, calceventdomain.LevelWarn, last.Level)
	assert.Equal(t, "[cancelled]", last.Message)

	// The kill-induced exit must not flip the cancelled run to failed.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, domain.StatusCancelled, f.run(t, resp.RunID).Status)
}

func TestCancelUnknownRun(t *testing.T) {
	f := newFixture(t, 0)

	err := f.svc.Cancel(context.Background(), domain.CancelRequest{
		Principal: f.user,
		OfferID:   f.offerID,
		RunID:     f.genID.Generate(),
	})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestWatchdogFailsOverdueRun(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	f.seedPlanFile(t)

	resp, err := f.svc.Start(context.Background(),
		domain.StartRequest{Principal: f.user, OfferID: f.offerID})
	require.NoError(t, err)
	w := f.launcher.worker(t, 0)

	require.Eventually(t, func() bool {
		return f.run(t, resp.RunID).Status == domain.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, f.run(t, resp.RunID).Error, "Timed out")
	assert.Equal(t, offerdomain.StatusFailed, f.offer(t).Status)

	select {
	case <-w.killed:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not kill the worker")
	}
}
