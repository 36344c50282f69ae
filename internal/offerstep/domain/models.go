package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OfferStep holds one named section of the multi-step form. Keyed by
// (offer_id, step_key) with upsert semantics; latest write wins.
type OfferStep struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"-"`
	TenantID    snowflake.ID      `gorm:"not null;index" json:"-"`
	OfferID     snowflake.ID      `gorm:"not null;uniqueIndex:ux_offer_steps_key" json:"offer_id"`
	StepKey     string            `gorm:"not null;uniqueIndex:ux_offer_steps_key" json:"step_key"`
	FormVersion int               `gorm:"not null;default:1" json:"form_version"`
	Data        datatypes.JSONMap `gorm:"type:jsonb" json:"data"`
	// UISnapshot freezes the form schema the data was submitted against,
	// so exports stay reproducible after the schema evolves.
	UISnapshot  datatypes.JSONMap `gorm:"type:jsonb" json:"ui_snapshot,omitempty"`
	SubmittedAt time.Time         `gorm:"not null" json:"submitted_at"`
}

func (OfferStep) TableName() string { return "offer_steps" }

// FormDefinition is a versioned UI schema for one step key.
type FormDefinition struct {
	ID       snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID snowflake.ID      `gorm:"not null;index" json:"tenant_id"`
	Key      string            `gorm:"not null" json:"key"`
	Version  int               `gorm:"not null" json:"version"`
	UISchema datatypes.JSONMap `gorm:"type:jsonb" json:"ui_schema"`
}

func (FormDefinition) TableName() string { return "form_definitions" }
