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
		log.Println("creating completed_shills table...")
		if err := mghelper.CreateSchema(ctx, db, &shillstore.CompletedShillDao{}); err != nil {
			return err
		}
		// feed exclusion subqueries filter on shill_id
		return mghelper.CreateModelIndexes(ctx, db, &shillstore.CompletedShillDao{}, "shill_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping completed_shills table...")
		return mghelper.DropTables(ctx, db, &shillstore.CompletedShillDao{})
	})
}
