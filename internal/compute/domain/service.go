package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"gorm.io/datatypes"
)

var (
	// ErrNoPlanFile means the offer has no usable plan input among its files.
	ErrNoPlanFile  = errors.New("no architectural plan found")
	ErrRunNotFound = errors.New("run_not_found")
	// ErrStartFailed wraps preparation or launch failures surfaced to the
	// caller of Start after the run has been auto-failed.
	ErrStartFailed = errors.New("start_failed")
)

type StartRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
}

type StartResponse struct {
	RunID snowflake.ID `json:"run_id"`
}

type FinishOkRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
	RunID     snowflake.ID
	Result    datatypes.JSONMap
}

type FinishFailRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
	RunID     snowflake.ID
	Message   string
	Detail    datatypes.JSONMap
}

type CancelRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
	RunID     snowflake.ID
}

// Service coordinates the lifecycle of computation runs: spawning the
// engine process, relaying its progress stream into the event log, and
// applying terminal transitions exactly once.
type Service interface {
	// Start launches a run for the offer, or returns the id of the run
	// already in flight. It returns as soon as the worker is spawned.
	Start(ctx context.Context, req StartRequest) (StartResponse, error)
	// FinishOk marks the run done and the offer ready with its result.
	// Safe to call more than once; only the first call transitions.
	FinishOk(ctx context.Context, req FinishOkRequest) error
	// FinishFail marks the run failed and the offer failed, appending a
	// terminal error event. Degrades best-effort when the offer or run is
	// already gone or terminal.
	FinishFail(ctx context.Context, req FinishFailRequest) error
	// Cancel kills the worker if it is local and transitions the run to
	// cancelled with a terminal event.
	Cancel(ctx context.Context, req CancelRequest) error
}
