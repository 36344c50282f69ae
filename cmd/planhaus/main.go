package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/config"
	"github.com/planhaus/planhaus/internal/logger"
	"github.com/planhaus/planhaus/internal/migration"
	"github.com/planhaus/planhaus/internal/server"
	"github.com/planhaus/planhaus/pkg/db"
	"go.uber.org/fx"
)

// RegisterSnowflake provides the process-wide id generator.
func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}
