package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Profile maps an authenticated subject to its tenant.
type Profile struct {
	ID        string       `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Email     string       `json:"email,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Profile) TableName() string { return "profiles" }
