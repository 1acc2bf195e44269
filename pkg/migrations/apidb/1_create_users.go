package apidb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/shillspot/shillspot/pkg/pgutil/migrations"
	"github.com/shillspot/shillspot/pkg/userstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating users table...")
		if err := mghelper.CreateSchema(ctx, db, &userstore.UserDao{}); err != nil {
			return err
		}
		// role is filtered on every leaderboard query
		return mghelper.CreateModelIndexes(ctx, db, &userstore.UserDao{}, "role")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping users table...")
		return mghelper.DropTables(ctx, db, &userstore.UserDao{})
	})
}
