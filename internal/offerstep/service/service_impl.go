package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/offerstep/domain"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// generalStepKey feeds the offer's list-view summary on save.
const generalStepKey = "dateGenerale"

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Tenant tenantdomain.Resolver
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	tenant tenantdomain.Resolver
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("offerstep.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		tenant: p.Tenant,
	}
}

func (s *Service) SaveStep(ctx context.Context, req domain.SaveStepRequest) error {
	stepKey := strings.TrimSpace(req.StepKey)
	if stepKey == "" {
		return domain.ErrInvalidStepKey
	}

	tenantID, err := s.tenant.TenantOf(ctx, req.Principal, req.OfferID)
	if err != nil {
		return err
	}
	if err := s.tenant.AssertOffer(ctx, req.OfferID, tenantID); err != nil {
		return err
	}

	formVersion := 1
	var uiSnapshot datatypes.JSONMap
	def, err := s.repo.LatestFormDefinition(ctx, s.db, tenantID, stepKey)
	if err != nil {
		return err
	}
	if def != nil {
		formVersion = def.Version
		uiSnapshot = def.UISchema
	}

	data := req.Data
	if data == nil {
		data = datatypes.JSONMap{}
	}

	step := domain.OfferStep{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		OfferID:     req.OfferID,
		StepKey:     stepKey,
		FormVersion: formVersion,
		Data:        data,
		UISnapshot:  uiSnapshot,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, s.db, &step); err != nil {
		return err
	}

	if stepKey == generalStepKey {
		s.refreshOfferSummary(ctx, req.OfferID, tenantID, data)
	}

	return nil
}

// refreshOfferSummary mirrors reference/basement fields into the offer meta
// for list views. Best-effort: a failure never fails the step save.
func (s *Service) refreshOfferSummary(ctx context.Context, offerID, tenantID snowflake.ID, data datatypes.JSONMap) {
	meta := datatypes.JSONMap{}
	if ref, ok := data["referinta"].(string); ok {
		meta["referinta"] = ref
	}
	if beci, ok := data["beci"]; ok && beci != nil {
		meta["beci"] = beci == true || beci == "true"
	}

	err := s.db.WithContext(ctx).
		Table("offers").
		Where("id = ? AND tenant_id = ?", offerID, tenantID).
		Update("meta", meta).Error
	if err != nil {
		s.log.Warn("offer summary refresh failed",
			zap.String("offer_id", offerID.String()),
			zap.Error(err))
	}
}
