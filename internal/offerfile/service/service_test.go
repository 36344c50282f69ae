package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/planhaus/planhaus/internal/migration"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	"github.com/planhaus/planhaus/internal/offerfile/domain"
	"github.com/planhaus/planhaus/internal/offerfile/repository"
	"github.com/planhaus/planhaus/internal/providers/objectstore"
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
	genID, err := snowflake.NewNode(6)
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		genID:    genID,
		tenantID: genID.Generate(),
		offerID:  genID.Generate(),
		user:     tenantdomain.UserPrincipal("user-1"),
		outsider: tenantdomain.UserPrincipal("user-2"),
	}
	f.svc = New(Params{
		DB:     db,
		Log:    log,
		GenID:  genID,
		Repo:   repository.Provide(),
		Store:  objectstore.NewMemory(),
		Tenant: tenantservice.New(tenantservice.Params{DB: db, Log: log}),
	})

	require.NoError(t, db.Create(&tenantdomain.Profile{ID: "user-1", TenantID: f.tenantID}).Error)
	require.NoError(t, db.Create(&tenantdomain.Profile{ID: "user-2", TenantID: genID.Generate()}).Error)
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

func TestPresignScopesPathToTenantAndOffer(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Presign(context.Background(), domain.PresignRequest{
		Principal: f.user,
		OfferID:   f.offerID,
		Filename:  "plan parter (v2).png",
	})
	require.NoError(t, err)

	prefix := "tenant_" + f.tenantID.String() + "/offer_" + f.offerID.String() + "/"
	assert.True(t, strings.HasPrefix(resp.StoragePath, prefix), resp.StoragePath)
	// Unsafe characters collapse to underscores, the extension survives.
	assert.True(t, strings.HasSuffix(resp.StoragePath, "-plan_parter__v2_.png"), resp.StoragePath)
	assert.NotEmpty(t, resp.UploadURL)
	assert.NotEmpty(t, resp.UploadToken)
}

func TestPresignPathsAreUniquePerCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Presign(ctx, domain.PresignRequest{
		Principal: f.user,
		OfferID:   f.offerID,
		Filename:  "plan.png",
	})
	require.NoError(t, err)
	second, err := f.svc.Presign(ctx, domain.PresignRequest{
		Principal: f.user,
		OfferID:   f.offerID,
		Filename:  "plan.png",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.StoragePath, second.StoragePath)
}

func TestPresignRejectsBlankFilename(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Presign(context.Background(), domain.PresignRequest{
		Principal: f.user,
		OfferID:   f.offerID,
		Filename:  "  ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFilename)
}

func TestPresignCrossTenantReadsAsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Presign(context.Background(), domain.PresignRequest{
		Principal: f.outsider,
		OfferID:   f.offerID,
		Filename:  "plan.png",
	})
	assert.ErrorIs(t, err, tenantdomain.ErrOfferNotFound)
}

func TestRegisterRecordsFile(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Principal:   f.user,
		OfferID:     f.offerID,
		StoragePath: "tenant_x/offer_y/abc-plan.png",
		Meta: datatypes.JSONMap{
			"kind": "planArhitectural",
			"mime": "image/png",
		},
	})
	require.NoError(t, err)
	require.NotZero(t, resp.FileID)

	var file domain.OfferFile
	require.NoError(t, f.db.Where("id = ?", resp.FileID).First(&file).Error)
	assert.Equal(t, f.tenantID, file.TenantID)
	assert.Equal(t, f.offerID, file.OfferID)
	assert.Equal(t, "planArhitectural", file.Meta["kind"])
}

func TestRegisterRejectsBlankStoragePath(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Principal: f.user,
		OfferID:   f.offerID,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStoragePath)
}

func TestRegisterCrossTenantReadsAsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Principal:   f.outsider,
		OfferID:     f.offerID,
		StoragePath: "tenant_x/offer_y/abc-plan.png",
	})
	assert.ErrorIs(t, err, tenantdomain.ErrOfferNotFound)
}
