package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"gorm.io/datatypes"
)

var ErrInvalidStepKey = errors.New("invalid_step_key")

type SaveStepRequest struct {
	Principal tenantdomain.Principal
	OfferID   snowflake.ID
	StepKey   string
	Data      datatypes.JSONMap
}

type Service interface {
	// SaveStep upserts a step section, snapshotting the latest form
	// definition for the key.
	SaveStep(ctx context.Context, req SaveStepRequest) error
}
