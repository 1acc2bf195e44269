package apidb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/shillspot/shillspot/pkg/pgutil/migrations"
	"github.com/shillspot/shillspot/pkg/shillstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating shill_results table...")
		return mghelper.CreateSchema(ctx, db, &shillstore.ShillResultDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping shill_results table...")
		return mghelper.DropTables(ctx, db, &shillstore.ShillResultDao{})
	})
}
