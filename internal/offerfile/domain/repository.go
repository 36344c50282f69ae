package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, file *OfferFile) error
	// ListByOffer returns the offer's files newest first.
	ListByOffer(ctx context.Context, db *gorm.DB, offerID snowflake.ID) ([]OfferFile, error)
}
