package userstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/shillspot/shillspot/pkg/user"
)

// UserDao is a data access object that maps directly to the 'users' table in PostgreSQL.
type UserDao struct {
	bun.BaseModel  `bun:"table:users,alias:u"`
	ID             int64     `bun:"id,pk,autoincrement"`
	Handle         string    `bun:"handle,unique,notnull,type:varchar(32)"`
	PasswordHash   string    `bun:"password_hash,notnull,type:varchar(72)"`
	WalletAddress  string    `bun:"wallet_address,notnull,type:varchar(64)"`
	ProfilePicture *string   `bun:"profile_picture,type:varchar(255)"`
	Role           string    `bun:"role,notnull,default:'user',type:varchar(16)"`
	Shills         int       `bun:"shills,notnull,default:0"`
	Points         int       `bun:"points,notnull,default:0"`
	CurrentStreak  int       `bun:"current_streak,notnull,default:0"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// toUserDao converts a user.User to UserDao.
func toUserDao(usr *user.User) *UserDao {
	dao := &UserDao{
		ID:            usr.ID,
		Handle:        usr.Handle,
		PasswordHash:  usr.PasswordHash,
		WalletAddress: usr.WalletAddress,
		Role:          string(usr.Role),
		Shills:        usr.Shills,
		Points:        usr.Points,
		CurrentStreak: usr.CurrentStreak,
	}

	if usr.ProfilePicture != "" {
		dao.ProfilePicture = &usr.ProfilePicture
	}

	return dao
}

// toUser converts a UserDao to user.User.
func toUser(dao *UserDao) *user.User {
	usr := &user.User{
		ID:            dao.ID,
		Handle:        dao.Handle,
		PasswordHash:  dao.PasswordHash,
		WalletAddress: dao.WalletAddress,
		Role:          user.Role(dao.Role),
		Shills:        dao.Shills,
		Points:        dao.Points,
		CurrentStreak: dao.CurrentStreak,
		CreatedAt:     dao.CreatedAt,
	}

	if dao.ProfilePicture != nil {
		usr.ProfilePicture = *dao.ProfilePicture
	}

	return usr
}

// toSummary converts a UserDao to the reference view embedded in other records.
func toSummary(dao *UserDao) *user.Summary {
	return toUser(dao).Summary()
}

// FollowDao maps to the 'follows' table: one row per established
// follower -> followee edge. The composite primary key makes the edge
// unique by construction.
type FollowDao struct {
	bun.BaseModel `bun:"table:follows,alias:f"`
	FollowerID    int64     `bun:"follower_id,pk"`
	FolloweeID    int64     `bun:"followee_id,pk"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// FollowRequestDao maps to the 'follow_requests' table. The
// (requester_id, recipient_id) pair is unique regardless of status, so a
// declined request blocks re-requests until it is deleted.
type FollowRequestDao struct {
	bun.BaseModel `bun:"table:follow_requests,alias:fr"`
	ID            int64     `bun:"id,pk,autoincrement"`
	RequesterID   int64     `bun:"requester_id,notnull,unique:follow_requests_pair"`
	RecipientID   int64     `bun:"recipient_id,notnull,unique:follow_requests_pair"`
	Status        string    `bun:"status,notnull,default:'pending',type:varchar(16)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`

	Requester *UserDao `bun:"rel:belongs-to,join:requester_id=id"`
	Recipient *UserDao `bun:"rel:belongs-to,join:recipient_id=id"`
}

// toFollowRequest converts a FollowRequestDao to user.FollowRequest.
func toFollowRequest(dao *FollowRequestDao) *user.FollowRequest {
	req := &user.FollowRequest{
		ID:          dao.ID,
		RequesterID: dao.RequesterID,
		RecipientID: dao.RecipientID,
		Status:      user.RequestStatus(dao.Status),
		CreatedAt:   dao.CreatedAt,
	}

	if dao.Requester != nil {
		req.Requester = toSummary(dao.Requester)
	}
	if dao.Recipient != nil {
		req.Recipient = toSummary(dao.Recipient)
	}

	return req
}
