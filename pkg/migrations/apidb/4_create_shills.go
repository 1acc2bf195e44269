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
		log.Println("creating shills table...")
		if err := mghelper.CreateSchema(ctx, db, &shillstore.ShillDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &shillstore.ShillDao{}, "creator_id"); err != nil {
			return err
		}
		// one active shill per creator, enforced at the database so racing
		// creates cannot slip past the service check
		_, err := db.ExecContext(ctx,
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_shills_one_active_per_creator ON shills (creator_id) WHERE active")
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping shills table...")
		if err := mghelper.DropIndex(ctx, db, "idx_shills_one_active_per_creator"); err != nil {
			return err
		}
		return mghelper.DropTables(ctx, db, &shillstore.ShillDao{})
	})
}
