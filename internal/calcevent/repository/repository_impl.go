package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/calcevent/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) ListSince(ctx context.Context, db *gorm.DB, runID snowflake.ID, sinceID int64, limit int) ([]domain.Event, error) {
	var items []domain.Event
	err := db.WithContext(ctx).
		Where("run_id = ? AND id > ?", runID, sinceID).
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) LatestRunID(ctx context.Context, db *gorm.DB, offerID snowflake.ID) (snowflake.ID, error) {
	var event domain.Event
	err := db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("id desc").
		First(&event).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return event.RunID, nil
}
