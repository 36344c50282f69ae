package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/compute/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Insert(ctx context.Context, db *gorm.DB, run *domain.Run) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) FindRunning(ctx context.Context, db *gorm.DB, tenantID, offerID snowflake.ID) (*domain.Run, error) {
	var run domain.Run
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND offer_id = ? AND status = ?", tenantID, offerID, domain.StatusRunning).
		First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, runID snowflake.ID) (*domain.Run, error) {
	var run domain.Run
	err := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", runID, tenantID).
		First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *repo) Finish(ctx context.Context, db *gorm.DB, tenantID, runID snowflake.ID, status domain.Status, errMsg string, finishedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Run{}).
		Where("id = ? AND tenant_id = ? AND status = ?", runID, tenantID, domain.StatusRunning).
		Updates(map[string]interface{}{
			"status":      status,
			"error":       errMsg,
			"finished_at": finishedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
