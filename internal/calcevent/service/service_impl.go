package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/calcevent/domain"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   domain.Repository
	Tenant tenantdomain.Resolver
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	tenant tenantdomain.Resolver
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("calcevent.service"),
		repo:   p.Repo,
		tenant: p.Tenant,
	}
}

func (s *Service) Append(ctx context.Context, offerID, runID snowflake.ID, level domain.Level, message string, payload datatypes.JSONMap) {
	tenantID, err := s.tenant.TenantOfOffer(ctx, offerID)
	if err != nil {
		s.log.Warn("drop event, tenant lookup failed",
			zap.String("offer_id", offerID.String()),
			zap.Error(err))
		return
	}

	event := domain.Event{
		TenantID:  tenantID,
		OfferID:   offerID,
		RunID:     runID,
		Level:     level,
		Message:   message,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, &event); err != nil {
		s.log.Warn("drop event, insert failed",
			zap.String("run_id", runID.String()),
			zap.String("message", message),
			zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	offerID, err := s.runOffer(ctx, req.RunID)
	if err != nil {
		return domain.ListResponse{}, err
	}
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, offerID)
	if err != nil {
		return domain.ListResponse{}, err
	}
	// A run owned by another tenant reads as absent.
	if err := s.tenant.AssertOffer(ctx, offerID, tenantID); err != nil {
		return domain.ListResponse{}, domain.ErrRunNotFound
	}

	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}

	items, err := s.repo.ListSince(ctx, s.db, req.RunID, req.SinceID, limit)
	if err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{Items: items}, nil
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) (domain.HistoryResponse, error) {
	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return domain.HistoryResponse{}, err
	}
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		return domain.HistoryResponse{}, err
	}

	runID, err := s.repo.LatestRunID(ctx, s.db, req.OfferID)
	if err != nil {
		return domain.HistoryResponse{}, err
	}
	if runID == 0 {
		return domain.HistoryResponse{Items: []domain.Event{}}, nil
	}

	items, err := s.repo.ListSince(ctx, s.db, runID, 0, domain.MaxListLimit)
	if err != nil {
		return domain.HistoryResponse{}, err
	}
	return domain.HistoryResponse{Items: items, RunID: &runID}, nil
}

// runOffer resolves a run's offer without importing the compute package.
func (s *Service) runOffer(ctx context.Context, runID snowflake.ID) (snowflake.ID, error) {
	var row struct {
		OfferID snowflake.ID
	}
	err := s.db.WithContext(ctx).
		Table("calc_runs").
		Select("offer_id").
		Where("id = ?", runID).
		Take(&row).Error
	if err == gorm.ErrRecordNotFound {
		return 0, domain.ErrRunNotFound
	}
	if err != nil {
		return 0, err
	}
	return row.OfferID, nil
}
