package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"gorm.io/datatypes"
)

var (
	// ErrNoPdf means no generated deliverable exists for the offer yet.
	ErrNoPdf      = errors.New("no pdf found for this offer")
	ErrSignFailed = errors.New("could not generate signed url")
)

// SignedURLExpirySeconds bounds the lifetime of minted download links.
const SignedURLExpirySeconds = 600

type ExportRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
}

// FileRef points a consumer at one picked file with a fresh signed URL.
type FileRef struct {
	ID          snowflake.ID      `json:"id"`
	Meta        datatypes.JSONMap `json:"meta,omitempty"`
	StoragePath string            `json:"storage_path"`
	DownloadURL string            `json:"download_url,omitempty"`
}

type FileSet struct {
	Plan *FileRef                    `json:"plan"`
	Pdf  *FileRef                    `json:"pdf"`
	All  []offerfiledomain.OfferFile `json:"all"`
}

type ExportResponse struct {
	Offer offerdomain.Offer `json:"offer"`
	// Data is all step payloads merged in submission order; later steps
	// win on key collision.
	Data  datatypes.JSONMap `json:"data"`
	Files FileSet           `json:"files"`
	// Pdf and DownloadURL duplicate Files.Pdf.DownloadURL for consumers
	// predating the structured shape.
	Pdf         string `json:"pdf,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

type ExportURLRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
}

type ExportURLResponse struct {
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
	Pdf         string `json:"pdf"`
	StoragePath string `json:"storage_path"`
	ExpiresIn   int    `json:"expires_in"`
}

type Service interface {
	// Export aggregates the offer, its merged step data, and its picked
	// plan/pdf files with time-boxed signed URLs.
	Export(ctx context.Context, req ExportRequest) (ExportResponse, error)
	// ExportURL re-mints a signed URL for the deliverable PDF, for
	// expired-link recovery.
	ExportURL(ctx context.Context, req ExportURLRequest) (ExportURLResponse, error)
}
