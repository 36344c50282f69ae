package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/offerfile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, file *domain.OfferFile) error {
	return db.WithContext(ctx).Create(file).Error
}

func (r *repo) ListByOffer(ctx context.Context, db *gorm.DB, offerID snowflake.ID) ([]domain.OfferFile, error) {
	var files []domain.OfferFile
	err := db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("created_at desc, id desc").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}
