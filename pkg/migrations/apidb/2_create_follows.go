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
		log.Println("creating follows table...")
		if err := mghelper.CreateSchema(ctx, db, &userstore.FollowDao{}); err != nil {
			return err
		}
		// the composite pk covers follower_id lookups; followers listings
		// filter on followee_id
		return mghelper.CreateModelIndexes(ctx, db, &userstore.FollowDao{}, "followee_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping follows table...")
		return mghelper.DropTables(ctx, db, &userstore.FollowDao{})
	})
}
