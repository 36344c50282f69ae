package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	// ListSince returns run events with id > sinceID, ascending, limited.
	ListSince(ctx context.Context, db *gorm.DB, runID snowflake.ID, sinceID int64, limit int) ([]Event, error)
	// LatestRunID returns the run of the offer's newest event, or 0 when
	// the offer has no events.
	LatestRunID(ctx context.Context, db *gorm.DB, offerID snowflake.ID) (snowflake.ID, error)
}
