package shillstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/shillspot/shillspot/pkg/shill"
	"github.com/shillspot/shillspot/pkg/user"
	"github.com/shillspot/shillspot/pkg/userstore"
)

// ShillDao is a data access object that maps directly to the 'shills' table
// in PostgreSQL. ProfitCount and LossCount are scan-only aggregates computed
// from shill_results; they have no backing columns.
type ShillDao struct {
	bun.BaseModel `bun:"table:shills,alias:s"`
	ID            int64     `bun:"id,pk,autoincrement"`
	CreatorID     int64     `bun:"creator_id,notnull"`
	TokenAddress  string    `bun:"token_address,notnull,type:varchar(64)"`
	Reason        string    `bun:"reason,notnull,type:varchar(140)"`
	Active        bool      `bun:"active,notnull,default:true"`
	Status        string    `bun:"status,notnull,default:'pending',type:varchar(16)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`

	ProfitCount int `bun:"profit_count,scanonly"`
	LossCount   int `bun:"loss_count,scanonly"`

	Creator *userstore.UserDao `bun:"rel:belongs-to,join:creator_id=id"`
}

// toShill converts a ShillDao to shill.Shill.
func toShill(dao *ShillDao) *shill.Shill {
	sh := &shill.Shill{
		ID:           dao.ID,
		CreatorID:    dao.CreatorID,
		TokenAddress: dao.TokenAddress,
		Reason:       dao.Reason,
		Active:       dao.Active,
		Status:       shill.Status(dao.Status),
		ProfitCount:  dao.ProfitCount,
		LossCount:    dao.LossCount,
		CreatedAt:    dao.CreatedAt,
	}

	if dao.Creator != nil {
		sh.Creator = creatorSummary(dao.Creator)
	}

	return sh
}

// creatorSummary builds the reduced creator view carried on feed entries:
// handle and picture only, matching what viewers may see before accepting.
func creatorSummary(dao *userstore.UserDao) *user.Summary {
	summary := &user.Summary{
		ID:     dao.ID,
		Handle: dao.Handle,
	}
	if dao.ProfilePicture != nil {
		summary.ProfilePicture = *dao.ProfilePicture
	}
	return summary
}

// ShillResultDao maps to the 'shill_results' table: one verdict per
// (shill, user) pair, overwritten on re-vote.
type ShillResultDao struct {
	bun.BaseModel `bun:"table:shill_results,alias:sr"`
	ShillID       int64     `bun:"shill_id,pk"`
	UserID        int64     `bun:"user_id,pk"`
	Result        string    `bun:"result,notnull,type:varchar(8)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// CompletedShillDao maps to the 'completed_shills' table: one row per
// (user, shill) pair once the user has recorded any verdict.
type CompletedShillDao struct {
	bun.BaseModel `bun:"table:completed_shills,alias:cs"`
	UserID        int64     `bun:"user_id,pk"`
	ShillID       int64     `bun:"shill_id,pk"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}
