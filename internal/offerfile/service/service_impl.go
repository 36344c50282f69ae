package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/planhaus/planhaus/internal/offerfile/domain"
	"github.com/planhaus/planhaus/internal/providers/objectstore"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const uploadURLExpiry = 10 * time.Minute

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Store  objectstore.Store
	Tenant tenantdomain.Resolver
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	store  objectstore.Store
	tenant tenantdomain.Resolver
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("offerfile.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		store:  p.Store,
		tenant: p.Tenant,
	}
}

func (s *Service) Presign(ctx context.Context, req domain.PresignRequest) (domain.PresignResponse, error) {
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		return domain.PresignResponse{}, domain.ErrInvalidFilename
	}

	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return domain.PresignResponse{}, err
	}
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		return domain.PresignResponse{}, err
	}

	safeName := unsafeNameChars.ReplaceAllString(filename, "_")
	path := "tenant_" + tenantID.String() + "/offer_" + req.OfferID.String() + "/" + uuid.NewString() + "-" + safeName

	signed, err := s.store.SignedUploadURL(ctx, path, uploadURLExpiry)
	if err != nil {
		return domain.PresignResponse{}, err
	}

	return domain.PresignResponse{
		UploadURL:   signed.URL,
		UploadToken: signed.Token,
		StoragePath: path,
	}, nil
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResponse, error) {
	if strings.TrimSpace(req.StoragePath) == "" {
		return domain.RegisterResponse{}, domain.ErrInvalidStoragePath
	}

	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return domain.RegisterResponse{}, err
	}
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		return domain.RegisterResponse{}, err
	}

	file := domain.OfferFile{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		OfferID:     req.OfferID,
		StoragePath: req.StoragePath,
		Meta:        req.Meta,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, &file); err != nil {
		return domain.RegisterResponse{}, err
	}

	return domain.RegisterResponse{FileID: file.ID}, nil
}
