package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/clock"
	"github.com/lingkodlabs/lingkod/internal/config"
	"github.com/lingkodlabs/lingkod/internal/migration"
	"github.com/lingkodlabs/lingkod/internal/observability"
	"github.com/lingkodlabs/lingkod/internal/server"
	"github.com/lingkodlabs/lingkod/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
