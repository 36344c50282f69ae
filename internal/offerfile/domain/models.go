package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Kind classifies an offer file. Stored in meta as a string tag; parsed to
// this closed set wherever control flow depends on it.
type Kind string

const (
	KindUnknown Kind = ""
	// KindPlanArchitectural tags the uploaded architectural plan input.
	KindPlanArchitectural Kind = "planArhitectural"
	// KindPlanJpg tags a rasterized plan image.
	KindPlanJpg Kind = "planJpg"
	// KindOfferPdf tags the generated deliverable PDF.
	KindOfferPdf Kind = "offerPdf"
)

// ParseKind folds a raw meta tag into the closed kind set.
func ParseKind(raw string) Kind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "planarhitectural":
		return KindPlanArchitectural
	case "planjpg":
		return KindPlanJpg
	case "offerpdf":
		return KindOfferPdf
	default:
		return KindUnknown
	}
}

// OfferFile references an object-store blob tied to an offer. Input and
// output artifacts share the table; meta.kind distinguishes them.
type OfferFile struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID      `gorm:"not null;index" json:"-"`
	OfferID     snowflake.ID      `gorm:"not null;index" json:"offer_id"`
	StoragePath string            `gorm:"not null" json:"storage_path"`
	Meta        datatypes.JSONMap `gorm:"type:jsonb" json:"meta,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (OfferFile) TableName() string { return "offer_files" }

func (f OfferFile) metaString(key string) string {
	if f.Meta == nil {
		return ""
	}
	v, _ := f.Meta[key].(string)
	return v
}

// Kind returns the parsed file kind tag.
func (f OfferFile) Kind() Kind { return ParseKind(f.metaString("kind")) }

// Mime returns the recorded content type, lowercased.
func (f OfferFile) Mime() string {
	m := f.metaString("mime")
	if m == "" {
		m = f.metaString("contentType")
	}
	return strings.ToLower(m)
}

// Filename returns the original upload name, if recorded.
func (f OfferFile) Filename() string { return f.metaString("filename") }

// IsImage reports whether the file is usable as a plan image: either an
// explicit plan kind or an image content type.
func (f OfferFile) IsImage() bool {
	switch f.Kind() {
	case KindPlanArchitectural, KindPlanJpg:
		return true
	}
	return strings.HasPrefix(f.Mime(), "image/")
}

// IsPdf reports whether the file is a PDF deliverable candidate.
func (f OfferFile) IsPdf() bool {
	if f.Kind() == KindOfferPdf {
		return true
	}
	mime := f.Mime()
	return mime == "application/pdf" || strings.HasSuffix(mime, "/pdf")
}
