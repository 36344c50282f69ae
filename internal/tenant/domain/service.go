package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	// ErrUnauthorized is returned when a principal has no tenant mapping.
	// A user without a profile is not a valid caller.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrOfferNotFound covers both a missing offer and a tenant mismatch,
	// so callers cannot probe for offers owned by other tenants.
	ErrOfferNotFound = errors.New("offer_not_found")
)

// Resolver maps principals to tenants and enforces offer ownership.
type Resolver interface {
	// TenantOf resolves the tenant for a principal. The engine principal
	// resolves through the target offer instead of a user profile.
	TenantOf(ctx context.Context, principal Principal, offerID snowflake.ID) (snowflake.ID, error)
	// TenantOfOffer returns the owning tenant of an offer.
	TenantOfOffer(ctx context.Context, offerID snowflake.ID) (snowflake.ID, error)
	// AssertOffer re-reads the offer and fails with ErrOfferNotFound unless
	// it exists and belongs to tenantID.
	AssertOffer(ctx context.Context, offerID, tenantID snowflake.ID) error
}
