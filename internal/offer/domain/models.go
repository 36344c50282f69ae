package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the offer lifecycle state.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Offer is a tenant-owned unit of work. Never hard-deleted.
type Offer struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID      `gorm:"not null;index" json:"-"`
	Title     string            `gorm:"not null" json:"title"`
	Status    Status            `gorm:"not null;default:draft" json:"status"`
	Meta      datatypes.JSONMap `gorm:"type:jsonb" json:"meta,omitempty"`
	Result    datatypes.JSONMap `gorm:"type:jsonb" json:"result,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Offer) TableName() string { return "offers" }
