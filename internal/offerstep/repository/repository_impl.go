package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/offerstep/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, step *domain.OfferStep) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "offer_id"}, {Name: "step_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"form_version", "data", "ui_snapshot", "submitted_at",
		}),
	}).Create(step).Error
}

func (r *repo) ListByOffer(ctx context.Context, db *gorm.DB, offerID snowflake.ID) ([]domain.OfferStep, error) {
	var steps []domain.OfferStep
	err := db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("submitted_at asc, id asc").
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *repo) LatestFormDefinition(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, key string) (*domain.FormDefinition, error) {
	var def domain.FormDefinition
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND key = ?", tenantID, key).
		Order("version desc").
		Take(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}
