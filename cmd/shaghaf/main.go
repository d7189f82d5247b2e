package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shaghafhq/shaghaf/internal/config"
	"github.com/shaghafhq/shaghaf/internal/migration"
	"github.com/shaghafhq/shaghaf/internal/observability"
	"github.com/shaghafhq/shaghaf/internal/server"
	"github.com/shaghafhq/shaghaf/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
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
