package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is a run's lifecycle state. Running transitions exactly once to a
// terminal state; terminal states are final.
type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Run is one computation attempt for an offer. At most one running run may
// exist per offer, enforced by a partial unique index on (offer_id) where
// status = 'running'.
type Run struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID `gorm:"not null;index" json:"-"`
	OfferID    snowflake.ID `gorm:"not null;index" json:"offer_id"`
	Status     Status       `gorm:"not null;default:running" json:"status"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

func (Run) TableName() string { return "calc_runs" }
