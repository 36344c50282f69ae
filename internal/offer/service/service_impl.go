package service

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/offer/domain"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	offerstepdomain "github.com/planhaus/planhaus/internal/offerstep/domain"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	defaultTitle    = "Ofertă nouă"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	StepRepo offerstepdomain.Repository
	FileRepo offerfiledomain.Repository
	Tenant   tenantdomain.Resolver
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	stepRepo offerstepdomain.Repository
	fileRepo offerfiledomain.Repository
	tenant   tenantdomain.Resolver
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("offer.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		stepRepo: p.StepRepo,
		fileRepo: p.FileRepo,
		tenant:   p.Tenant,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOfferRequest) (domain.CreateOfferResponse, error) {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, 0)
	if err != nil {
		return domain.CreateOfferResponse{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTitle
	}

	now := time.Now().UTC()
	offer := domain.Offer{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Title:     title,
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &offer); err != nil {
		return domain.CreateOfferResponse{}, err
	}

	return domain.CreateOfferResponse{ID: offer.ID}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateOfferRequest) error {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return err
	}
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		return domain.ErrNotFound
	}

	fields := map[string]interface{}{"updated_at": time.Now().UTC()}
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	return s.repo.UpdateFields(ctx, s.db, tenantID, req.OfferID, fields)
}

func (s *Service) List(ctx context.Context, req domain.ListOffersRequest) (domain.ListOffersResponse, error) {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, 0)
	if err != nil {
		return domain.ListOffersResponse{}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := domain.ListFilter{Limit: limit}
	if req.Cursor != "" {
		createdAt, id, err := decodeCursor(req.Cursor)
		if err != nil {
			return domain.ListOffersResponse{}, domain.ErrInvalidCursor
		}
		filter.CursorCreatedAt = &createdAt
		filter.CursorID = id
	}

	items, err := s.repo.List(ctx, s.db, tenantID, filter)
	if err != nil {
		return domain.ListOffersResponse{}, err
	}

	resp := domain.ListOffersResponse{Items: items}
	if len(items) == limit {
		last := items[len(items)-1]
		resp.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return resp, nil
}

func (s *Service) Detail(ctx context.Context, req domain.DetailRequest) (domain.DetailResponse, error) {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return domain.DetailResponse{}, err
	}

	offer, err := s.repo.FindByID(ctx, s.db, tenantID, req.OfferID)
	if err != nil {
		return domain.DetailResponse{}, err
	}
	if offer == nil {
		return domain.DetailResponse{}, domain.ErrNotFound
	}

	steps, err := s.stepRepo.ListByOffer(ctx, s.db, req.OfferID)
	if err != nil {
		return domain.DetailResponse{}, err
	}
	files, err := s.fileRepo.ListByOffer(ctx, s.db, req.OfferID)
	if err != nil {
		return domain.DetailResponse{}, err
	}

	return domain.DetailResponse{
		Offer:  *offer,
		Steps:  steps,
		Files:  files,
		Result: offer.Result,
	}, nil
}

func encodeCursor(createdAt time.Time, id snowflake.ID) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id.String()
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, snowflake.ID, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, domain.ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, 0, err
	}
	id, err := snowflake.ParseString(parts[1])
	if err != nil {
		return time.Time{}, 0, err
	}
	return createdAt, id, nil
}
