package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	offerstepdomain "github.com/planhaus/planhaus/internal/offerstep/domain"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
)

var (
	ErrNotFound      = errors.New("not_found")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidCursor = errors.New("invalid_cursor")
)

type CreateOfferRequest struct {
	Principal tenantdomain.Principal
	Title     string
}

type CreateOfferResponse struct {
	ID snowflake.ID `json:"id"`
}

type UpdateOfferRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
	Title     *string
}

type ListOffersRequest struct {
	Principal tenantdomain.Principal
	Limit     int
	Cursor    string
}

type ListOffersResponse struct {
	Items      []Offer `json:"items"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

type DetailRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
}

type DetailResponse struct {
	Offer  Offer                       `json:"offer"`
	Steps  []offerstepdomain.OfferStep `json:"steps"`
	Files  []offerfiledomain.OfferFile `json:"files"`
	Result map[string]interface{}      `json:"result,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateOfferRequest) (CreateOfferResponse, error)
	Update(ctx context.Context, req UpdateOfferRequest) error
	List(ctx context.Context, req ListOffersRequest) (ListOffersResponse, error)
	Detail(ctx context.Context, req DetailRequest) (DetailResponse, error)
}
