package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"gorm.io/datatypes"
)

var (
	ErrInvalidFilename    = errors.New("invalid_filename")
	ErrInvalidStoragePath = errors.New("invalid_storage_path")
)

type PresignRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
	Filename  string
}

type PresignResponse struct {
	UploadURL   string `json:"uploadUrl"`
	UploadToken string `json:"uploadToken,omitempty"`
	StoragePath string `json:"storagePath"`
}

type RegisterRequest struct {
	Principal   tenantdomain.Principal
	OfferID     snowflake.ID
	StoragePath string
	Meta        datatypes.JSONMap
}

type RegisterResponse struct {
	FileID snowflake.ID `json:"file_id"`
}

type Service interface {
	// Presign mints a signed upload URL under a tenant/offer-scoped path.
	Presign(ctx context.Context, req PresignRequest) (PresignResponse, error)
	// Register records an uploaded blob as an offer file.
	Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error)
}
