package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/offer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	return db.WithContext(ctx).Create(offer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Offer, error) {
	var offer domain.Offer
	err := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Take(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListFilter) ([]domain.Offer, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("tenant_id = ?", tenantID)
	if filter.CursorCreatedAt != nil {
		stmt = stmt.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			*filter.CursorCreatedAt, *filter.CursorCreatedAt, filter.CursorID,
		)
	}

	var offers []domain.Offer
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, fields map[string]interface{}) error {
	return db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(fields).Error
}
