package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/shillspot/shillspot/pkg/user"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the user store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// isUniqueViolation reports whether err is a postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.IntegrityViolation()
}

func (s *pgStore) CreateUser(ctx context.Context, usr *user.User) error {
	dao := toUserDao(usr)
	dao.ID = 0

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateHandle
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	usr.ID = dao.ID
	usr.CreatedAt = dao.CreatedAt
	return nil
}

func (s *pgStore) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	dao := new(UserDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toUser(dao), nil
}

func (s *pgStore) GetUserByHandle(ctx context.Context, handle string) (*user.User, error) {
	dao := new(UserDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("handle = ?", handle).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by handle: %w", err)
	}
	return toUser(dao), nil
}

func (s *pgStore) HandleExists(ctx context.Context, handle string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*UserDao)(nil)).
		Where("handle = ?", handle).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check handle exists: %w", err)
	}
	return exists, nil
}

func (s *pgStore) SetProfilePicture(ctx context.Context, id int64, path string) error {
	res, err := s.db.NewUpdate().
		Model((*UserDao)(nil)).
		Set("profile_picture = ?", path).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set profile picture: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *pgStore) ListUsers(ctx context.Context) ([]*user.User, error) {
	var daos []UserDao
	err := s.db.NewSelect().
		Model(&daos).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return toUsers(daos), nil
}

func (s *pgStore) ListNewUsers(ctx context.Context, limit int) ([]*user.User, error) {
	var daos []UserDao
	err := s.db.NewSelect().
		Model(&daos).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list new users: %w", err)
	}
	return toUsers(daos), nil
}

func (s *pgStore) ListTopShillers(ctx context.Context, limit int) ([]*user.User, error) {
	var daos []UserDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("role = ?", string(user.RoleShiller)).
		Order("points DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list top shillers: %w", err)
	}
	return toUsers(daos), nil
}

func toUsers(daos []UserDao) []*user.User {
	users := make([]*user.User, len(daos))
	for i := range daos {
		users[i] = toUser(&daos[i])
	}
	return users
}

func (s *pgStore) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*FollowDao)(nil)).
		Where("follower_id = ?", followerID).
		Where("followee_id = ?", followeeID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check follow edge: %w", err)
	}
	return exists, nil
}

func (s *pgStore) ListFollowing(ctx context.Context, userID int64) ([]*user.User, error) {
	var daos []UserDao
	err := s.db.NewSelect().
		Model(&daos).
		Join("JOIN follows AS f ON f.followee_id = u.id").
		Where("f.follower_id = ?", userID).
		OrderExpr("f.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return toUsers(daos), nil
}

func (s *pgStore) ListFollowers(ctx context.Context, userID int64) ([]*user.User, error) {
	var daos []UserDao
	err := s.db.NewSelect().
		Model(&daos).
		Join("JOIN follows AS f ON f.follower_id = u.id").
		Where("f.followee_id = ?", userID).
		OrderExpr("f.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return toUsers(daos), nil
}

func (s *pgStore) ListFollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		Model((*FollowDao)(nil)).
		Column("followee_id").
		Where("follower_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list following ids: %w", err)
	}
	return ids, nil
}

func (s *pgStore) CountFollowing(ctx context.Context, userID int64) (int, error) {
	count, err := s.db.NewSelect().
		Model((*FollowDao)(nil)).
		Where("follower_id = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return count, nil
}

func (s *pgStore) CountFollowers(ctx context.Context, userID int64) (int, error) {
	count, err := s.db.NewSelect().
		Model((*FollowDao)(nil)).
		Where("followee_id = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

func (s *pgStore) CreateFollowRequest(ctx context.Context, req *user.FollowRequest) error {
	dao := &FollowRequestDao{
		RequesterID: req.RequesterID,
		RecipientID: req.RecipientID,
		Status:      string(user.RequestPending),
	}

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRequest
		}
		return fmt.Errorf("failed to create follow request: %w", err)
	}

	req.ID = dao.ID
	req.Status = user.RequestStatus(dao.Status)
	req.CreatedAt = dao.CreatedAt
	return nil
}

func (s *pgStore) GetFollowRequest(ctx context.Context, id int64) (*user.FollowRequest, error) {
	dao := new(FollowRequestDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("fr.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get follow request: %w", err)
	}
	return toFollowRequest(dao), nil
}

func (s *pgStore) PairRequestExists(ctx context.Context, requesterID, recipientID int64) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*FollowRequestDao)(nil)).
		Where("requester_id = ?", requesterID).
		Where("recipient_id = ?", recipientID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check follow request pair: %w", err)
	}
	return exists, nil
}

// AcceptFollowRequest flips a pending request to accepted and creates the
// follower edge in one transaction. The conditional update makes the first
// accept win when two responses race.
func (s *pgStore) AcceptFollowRequest(ctx context.Context, id int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dao := new(FollowRequestDao)
		res, err := tx.NewUpdate().
			Model(dao).
			Set("status = ?", string(user.RequestAccepted)).
			Where("id = ?", id).
			Where("status = ?", string(user.RequestPending)).
			Returning("requester_id, recipient_id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to accept follow request: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return s.notPendingErr(ctx, tx, id)
		}

		edge := &FollowDao{
			FollowerID: dao.RequesterID,
			FolloweeID: dao.RecipientID,
		}
		_, err = tx.NewInsert().
			Model(edge).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create follow edge: %w", err)
		}
		return nil
	})
}

func (s *pgStore) DeclineFollowRequest(ctx context.Context, id int64) error {
	res, err := s.db.NewUpdate().
		Model((*FollowRequestDao)(nil)).
		Set("status = ?", string(user.RequestDeclined)).
		Where("id = ?", id).
		Where("status = ?", string(user.RequestPending)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to decline follow request: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return s.notPendingErr(ctx, s.db, id)
	}
	return nil
}

// notPendingErr distinguishes a missing request from one already responded to.
func (s *pgStore) notPendingErr(ctx context.Context, db bun.IDB, id int64) error {
	exists, err := db.NewSelect().
		Model((*FollowRequestDao)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check follow request exists: %w", err)
	}
	if !exists {
		return ErrRequestNotFound
	}
	return ErrRequestNotPending
}

func (s *pgStore) DeleteFollowRequest(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*FollowRequestDao)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete follow request: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (s *pgStore) ListPendingIncoming(ctx context.Context, recipientID int64) ([]*user.FollowRequest, error) {
	return s.listPending(ctx, "recipient_id", recipientID, "Requester")
}

func (s *pgStore) ListPendingOutgoing(ctx context.Context, requesterID int64) ([]*user.FollowRequest, error) {
	return s.listPending(ctx, "requester_id", requesterID, "Recipient")
}

func (s *pgStore) listPending(ctx context.Context, col string, userID int64, counterpart string) ([]*user.FollowRequest, error) {
	var daos []FollowRequestDao
	err := s.db.NewSelect().
		Model(&daos).
		Relation(counterpart).
		Where("fr."+col+" = ?", userID).
		Where("fr.status = ?", string(user.RequestPending)).
		Order("fr.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending follow requests: %w", err)
	}

	reqs := make([]*user.FollowRequest, len(daos))
	for i := range daos {
		reqs[i] = toFollowRequest(&daos[i])
	}
	return reqs, nil
}
