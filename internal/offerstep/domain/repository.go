package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert writes the step, replacing any previous row for
	// (offer_id, step_key).
	Upsert(ctx context.Context, db *gorm.DB, step *OfferStep) error
	// ListByOffer returns the offer's steps in submission order.
	ListByOffer(ctx context.Context, db *gorm.DB, offerID snowflake.ID) ([]OfferStep, error)
	// LatestFormDefinition returns the newest definition for a step key,
	// or nil when none exists.
	LatestFormDefinition(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, key string) (*FormDefinition, error)
}
