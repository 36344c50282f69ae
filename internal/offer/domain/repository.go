package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter pages offers newest first from an exclusive cursor position.
type ListFilter struct {
	Limit           int
	CursorCreatedAt *time.Time
	CursorID        snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, offer *Offer) error
	// FindByID is tenant-scoped; a mismatch reads as absent.
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Offer, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListFilter) ([]Offer, error)
	// UpdateFields patches offer columns scoped by tenant.
	UpdateFields(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, fields map[string]interface{}) error
}
