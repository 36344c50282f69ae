package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"gorm.io/datatypes"
)

var ErrRunNotFound = errors.New("run_not_found")

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

type ListRequest struct {
	Principal tenantdomain.Principal
	RunID     snowflake.ID
	SinceID   int64
	Limit     int
}

type ListResponse struct {
	Items []Event `json:"items"`
}

type HistoryRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
}

type HistoryResponse struct {
	Items []Event       `json:"items"`
	RunID *snowflake.ID `json:"run_id"`
}

type Service interface {
	// Append records one event for a run. Best-effort: failures are logged
	// and swallowed so a lost progress event never aborts a run.
	Append(ctx context.Context, offerID, runID snowflake.ID, level Level, message string, payload datatypes.JSONMap)
	// List returns events with id > SinceID in ascending id order, capped
	// at MaxListLimit. The polling primitive.
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// History replays all events of the offer's most recent run.
	History(ctx context.Context, req HistoryRequest) (HistoryResponse, error)
}
