package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) domain.Resolver {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("tenant.service"),
	}
}

func (s *Service) TenantOf(ctx context.Context, principal domain.Principal, offerID snowflake.ID) (snowflake.ID, error) {
	if principal.Engine {
		return s.TenantOfOffer(ctx, offerID)
	}

	var profile domain.Profile
	err := s.db.WithContext(ctx).
		Where("id = ?", principal.Subject).
		Take(&profile).Error
	if err != nil {
		return 0, domain.ErrUnauthorized
	}
	return profile.TenantID, nil
}

func (s *Service) TenantOfOffer(ctx context.Context, offerID snowflake.ID) (snowflake.ID, error) {
	var row struct {
		TenantID snowflake.ID
	}
	err := s.db.WithContext(ctx).
		Table("offers").
		Select("tenant_id").
		Where("id = ?", offerID).
		Take(&row).Error
	if err != nil {
		return 0, domain.ErrOfferNotFound
	}
	return row.TenantID, nil
}

func (s *Service) AssertOffer(ctx context.Context, offerID, tenantID snowflake.ID) error {
	var count int64
	err := s.db.WithContext(ctx).
		Table("offers").
		Where("id = ? AND tenant_id = ?", offerID, tenantID).
		Count(&count).Error
	if err != nil || count == 0 {
		return domain.ErrOfferNotFound
	}
	return nil
}
