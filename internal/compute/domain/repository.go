package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, run *Run) error
	// FindRunning returns the offer's running run, or nil.
	FindRunning(ctx context.Context, db *gorm.DB, tenantID, offerID snowflake.ID) (*Run, error)
	// FindByID is tenant-scoped; a mismatch reads as absent.
	FindByID(ctx context.Context, db *gorm.DB, tenantID, runID snowflake.ID) (*Run, error)
	// Finish conditionally transitions a run from running to the given
	// terminal status. Returns false when the run was not running, which
	// makes duplicate finish calls no-ops.
	Finish(ctx context.Context, db *gorm.DB, tenantID, runID snowflake.ID, status Status, errMsg string, finishedAt time.Time) (bool, error)
}
