package service

import (
	"context"
	"strings"
	"time"

	"github.com/planhaus/planhaus/internal/export/domain"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	offerstepdomain "github.com/planhaus/planhaus/internal/offerstep/domain"
	"github.com/planhaus/planhaus/internal/providers/objectstore"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	OfferRepo offerdomain.Repository
	StepRepo  offerstepdomain.Repository
	FileRepo  offerfiledomain.Repository
	Tenant    tenantdomain.Resolver
	Store     objectstore.Store
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	offerRepo offerdomain.Repository
	stepRepo  offerstepdomain.Repository
	fileRepo  offerfiledomain.Repository
	tenant    tenantdomain.Resolver
	store     objectstore.Store
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("export.service"),
		offerRepo: p.OfferRepo,
		stepRepo:  p.StepRepo,
		fileRepo:  p.FileRepo,
		tenant:    p.Tenant,
		store:     p.Store,
	}
}

func (s *Service) Export(ctx context.Context, req domain.ExportRequest) (domain.ExportResponse, error) {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return domain.ExportResponse{}, err
	}

	offer, err := s.offerRepo.FindByID(ctx, s.db, tenantID, req.OfferID)
	if err != nil {
		return domain.ExportResponse{}, err
	}
	if offer == nil {
		return domain.ExportResponse{}, offerdomain.ErrNotFound
	}

	steps, err := s.stepRepo.ListByOffer(ctx, s.db, req.OfferID)
	if err != nil {
		return domain.ExportResponse{}, err
	}
	merged := datatypes.JSONMap{}
	for _, step := range steps {
		for k, v := range step.Data {
			merged[k] = v
		}
	}

	files, err := s.fileRepo.ListByOffer(ctx, s.db, req.OfferID)
	if err != nil {
		return domain.ExportResponse{}, err
	}

	resp := domain.ExportResponse{
		Offer: *offer,
		Data:  merged,
		Files: domain.FileSet{All: files},
	}

	if plan := pickPlanFile(files); plan != nil {
		resp.Files.Plan = s.fileRef(ctx, plan)
	}
	if pdf := pickPdfFile(files); pdf != nil {
		ref := s.fileRef(ctx, pdf)
		resp.Files.Pdf = ref
		resp.Pdf = ref.DownloadURL
		resp.DownloadURL = ref.DownloadURL
	}
	return resp, nil
}

func (s *Service) ExportURL(ctx context.Context, req domain.ExportURLRequest) (domain.ExportURLResponse, error) {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return domain.ExportURLResponse{}, err
	}
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		return domain.ExportURLResponse{}, err
	}

	files, err := s.fileRepo.ListByOffer(ctx, s.db, req.OfferID)
	if err != nil {
		return domain.ExportURLResponse{}, err
	}
	pdf := pickPdfFile(files)
	if pdf == nil {
		return domain.ExportURLResponse{}, domain.ErrNoPdf
	}

	url, err := s.store.SignedDownloadURL(ctx, pdf.StoragePath,
		time.Duration(domain.SignedURLExpirySeconds)*time.Second)
	if err != nil {
		s.log.Warn("signed url mint failed",
			zap.String("storage_path", pdf.StoragePath),
			zap.Error(err))
		return domain.ExportURLResponse{}, domain.ErrSignFailed
	}

	return domain.ExportURLResponse{
		URL:         url,
		DownloadURL: url,
		Pdf:         url,
		StoragePath: pdf.StoragePath,
		ExpiresIn:   domain.SignedURLExpirySeconds,
	}, nil
}

// fileRef builds a reference with a signed URL; a mint failure degrades to
// a reference without a URL rather than failing the export.
func (s *Service) fileRef(ctx context.Context, file *offerfiledomain.OfferFile) *domain.FileRef {
	ref := &domain.FileRef{
		ID:          file.ID,
		Meta:        file.Meta,
		StoragePath: file.StoragePath,
	}
	url, err := s.store.SignedDownloadURL(ctx, file.StoragePath,
		time.Duration(domain.SignedURLExpirySeconds)*time.Second)
	if err != nil {
		s.log.Warn("signed url mint failed",
			zap.String("storage_path", file.StoragePath),
			zap.Error(err))
		return ref
	}
	ref.DownloadURL = url
	return ref
}

// pickPlanFile prefers an explicit architectural plan tag, then a
// rasterized plan, then the most recent image-like file. Files arrive
// newest first, so ties resolve to the most recent upload.
func pickPlanFile(files []offerfiledomain.OfferFile) *offerfiledomain.OfferFile {
	for i := range files {
		if files[i].Kind() == offerfiledomain.KindPlanArchitectural {
			return &files[i]
		}
	}
	for i := range files {
		if files[i].Kind() == offerfiledomain.KindPlanJpg {
			return &files[i]
		}
	}
	for i := range files {
		if isPlanImage(files[i]) {
			return &files[i]
		}
	}
	return nil
}

// pickPdfFile prefers the registered deliverable tag, then any PDF mime.
func pickPdfFile(files []offerfiledomain.OfferFile) *offerfiledomain.OfferFile {
	for i := range files {
		if files[i].Kind() == offerfiledomain.KindOfferPdf {
			return &files[i]
		}
	}
	for i := range files {
		if files[i].IsPdf() {
			return &files[i]
		}
	}
	return nil
}

// isPlanImage also accepts legacy kind tags written by older uploaders.
func isPlanImage(f offerfiledomain.OfferFile) bool {
	if f.IsImage() {
		return true
	}
	raw := ""
	if f.Meta != nil {
		raw, _ = f.Meta["kind"].(string)
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "plan", "plan_original":
		return true
	}
	return false
}
