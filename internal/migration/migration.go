package migration

import (
	"fmt"
	"strings"

	calceventdomain "github.com/planhaus/planhaus/internal/calcevent/domain"
	computedomain "github.com/planhaus/planhaus/internal/compute/domain"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	offerstepdomain "github.com/planhaus/planhaus/internal/offerstep/domain"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"gorm.io/gorm"
)

// Run migrates the schema and installs the constraints the run lifecycle
// depends on.
func Run(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&tenantdomain.Profile{},
		&offerdomain.Offer{},
		&offerstepdomain.OfferStep{},
		&offerstepdomain.FormDefinition{},
		&offerfiledomain.OfferFile{},
		&computedomain.Run{},
		&calceventdomain.Event{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// One running run per offer. The partial unique index closes the
	// check-then-insert race between concurrent start calls; AutoMigrate
	// cannot express it.
	err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_calc_runs_running
		 ON calc_runs (offer_id) WHERE status = 'running'`,
	).Error
	if err != nil && !isUnsupportedPartialIndex(err) {
		return fmt.Errorf("create running-run index: %w", err)
	}
	return nil
}

// isUnsupportedPartialIndex tolerates dialects without partial indexes
// (MySQL); those deployments rely on the conditional insert path alone.
func isUnsupportedPartialIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "syntax") && strings.Contains(msg, "where")
}
