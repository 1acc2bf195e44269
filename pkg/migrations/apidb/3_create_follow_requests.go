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
		log.Println("creating follow_requests table...")
		if err := mghelper.CreateSchema(ctx, db, &userstore.FollowRequestDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &userstore.FollowRequestDao{}, "recipient_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping follow_requests table...")
		return mghelper.DropTables(ctx, db, &userstore.FollowRequestDao{})
	})
}
