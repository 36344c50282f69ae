package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/planhaus/planhaus/internal/calcevent/domain"
	"github.com/planhaus/planhaus/internal/calcevent/repository"
	computedomain "github.com/planhaus/planhaus/internal/compute/domain"
	"github.com/planhaus/planhaus/internal/migration"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	tenantservice "github.com/planhaus/planhaus/internal/tenant/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	genID    *snowflake.Node
	tenantID snowflake.ID
	offerID  snowflake.ID
	runID    snowflake.ID
	user     tenantdomain.Principal
	outsider tenantdomain.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.Run(db))

	log := zap.NewNop()
	genID, err := snowflake.NewNode(2)
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		genID:    genID,
		tenantID: genID.Generate(),
		offerID:  genID.Generate(),
		runID:    genID.Generate(),
		user:     tenantdomain.UserPrincipal("user-1"),
		outsider: tenantdomain.UserPrincipal("user-2"),
	}
	f.svc = New(Params{
		DB:     db,
		Log:    log,
		Repo:   repository.Provide(),
		Tenant: tenantservice.New(tenantservice.Params{DB: db, Log: log}),
	})

	otherTenant := genID.Generate()
	require.NoError(t, db.Create(&tenantdomain.Profile{ID: "user-1", TenantID: f.tenantID}).Error)
	require.NoError(t, db.Create(&tenantdomain.Profile{ID: "user-2", TenantID: otherTenant}).Error)
	require.NoError(t, db.Create(&offerdomain.Offer{
		ID:        f.offerID,
		TenantID:  f.tenantID,
		Title:     "Casa test",
		Status:    offerdomain.StatusProcessing,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}).Error)
	require.NoError(t, db.Create(&computedomain.Run{
		ID:        f.runID,
		TenantID:  f.tenantID,
		OfferID:   f.offerID,
		Status:    computedomain.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}).Error)
	return f
}

func (f *fixture) append(n int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		f.svc.Append(ctx, f.offerID, f.runID, domain.LevelInfo,
			fmt.Sprintf("[stage_%d]", i), nil)
	}
}

func TestListReturnsAscendingIDs(t *testing.T) {
	f := newFixture(t)
	f.append(5)

	resp, err := f.svc.List(context.Background(), domain.ListRequest{
		Principal: f.user,
		RunID:     f.runID,
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 5)
	for i := 1; i < len(resp.Items); i++ {
		assert.Greater(t, resp.Items[i].ID, resp.Items[i-1].ID)
	}
	assert.Equal(t, "[stage_0]", resp.Items[0].Message)
}

func TestListSinceCursorDeliversEachEventOnce(t *testing.T) {
	f := newFixture(t)
	f.append(3)
	ctx := context.Background()

	first, err := f.svc.List(ctx, domain.ListRequest{Principal: f.user, RunID: f.runID})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)

	f.append(2)
	cursor := first.Items[len(first.Items)-1].ID

	second, err := f.svc.List(ctx, domain.ListRequest{
		Principal: f.user,
		RunID:     f.runID,
		SinceID:   cursor,
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "[stage_0]", second.Items[0].Message)
	for _, item := range second.Items {
		assert.Greater(t, item.ID, cursor)
	}
}

func TestListLimitIsCapped(t *testing.T) {
	f := newFixture(t)
	f.append(4)
	ctx := context.Background()

	resp, err := f.svc.List(ctx, domain.ListRequest{
		Principal: f.user,
		RunID:     f.runID,
		Limit:     2,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)

	// An absurd limit falls back to the cap rather than erroring.
	resp, err = f.svc.List(ctx, domain.ListRequest{
		Principal: f.user,
		RunID:     f.runID,
		Limit:     10_000,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 4)
}

func TestListUnknownRun(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), domain.ListRequest{
		Principal: f.user,
		RunID:     f.genID.Generate(),
	})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestListCrossTenantReadsAsNotFound(t *testing.T) {
	f := newFixture(t)
	f.append(1)

	_, err := f.svc.List(context.Background(), domain.ListRequest{
		Principal: f.outsider,
		RunID:     f.runID,
	})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestHistoryReplaysLatestRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.append(2)

	// A newer run supersedes the first one in history.
	newRun := f.genID.Generate()
	require.NoError(t, f.db.Create(&computedomain.Run{
		ID:        newRun,
		TenantID:  f.tenantID,
		OfferID:   f.offerID,
		Status:    computedomain.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}).Error)
	f.svc.Append(ctx, f.offerID, newRun, domain.LevelInfo, "[restarted]",
		datatypes.JSONMap{"attempt": 2.0})

	resp, err := f.svc.History(ctx, domain.HistoryRequest{
		Principal: f.user,
		OfferID:   f.offerID,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.RunID)
	assert.Equal(t, newRun, *resp.RunID)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "[restarted]", resp.Items[0].Message)
}

func TestHistoryWithoutEvents(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.History(context.Background(), domain.HistoryRequest{
		Principal: f.user,
		OfferID:   f.offerID,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.RunID)
	assert.Empty(t, resp.Items)
}

func TestAppendSwallowsUnknownOffer(t *testing.T) {
	f := newFixture(t)

	// Must not panic or write anything when the offer cannot be resolved.
	f.svc.Append(context.Background(), f.genID.Generate(), f.runID,
		domain.LevelInfo, "orphan", nil)

	var count int64
	require.NoError(t, f.db.Model(&domain.Event{}).Count(&count).Error)
	assert.Zero(t, count)
}
