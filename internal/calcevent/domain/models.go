package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Level grades an event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one immutable record in a run's append-only log. The
// auto-increment id is the sole cursor for incremental polling, so ids are
// strictly increasing in insertion order.
type Event struct {
	ID        int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID  snowflake.ID      `gorm:"not null;index" json:"-"`
	OfferID   snowflake.ID      `gorm:"not null;index" json:"offer_id"`
	RunID     snowflake.ID      `gorm:"not null;index" json:"run_id"`
	Level     Level             `gorm:"not null;default:info" json:"level"`
	Message   string            `gorm:"not null" json:"message"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Event) TableName() string { return "calc_events" }
