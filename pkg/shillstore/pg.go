package shillstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/shillspot/shillspot/pkg/shill"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the shill store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// isUniqueViolation reports whether err is a postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.IntegrityViolation()
}

// withTallies adds the derived profit/loss aggregate columns to a shill
// select. The counts live only in shill_results, never on the shill row.
func withTallies(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		ColumnExpr("s.*").
		ColumnExpr("(SELECT COUNT(*) FROM shill_results sr WHERE sr.shill_id = s.id AND sr.result = ?) AS profit_count", string(shill.ResultProfit)).
		ColumnExpr("(SELECT COUNT(*) FROM shill_results sr WHERE sr.shill_id = s.id AND sr.result = ?) AS loss_count", string(shill.ResultLoss))
}

func (s *pgStore) CreateShill(ctx context.Context, sh *shill.Shill) error {
	dao := &ShillDao{
		CreatorID:    sh.CreatorID,
		TokenAddress: sh.TokenAddress,
		Reason:       sh.Reason,
		Active:       true,
		Status:       string(shill.StatusPending),
	}

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveShillExists
		}
		return fmt.Errorf("failed to create shill: %w", err)
	}

	sh.ID = dao.ID
	sh.Active = dao.Active
	sh.Status = shill.Status(dao.Status)
	sh.CreatedAt = dao.CreatedAt
	return nil
}

func (s *pgStore) GetShill(ctx context.Context, id int64) (*shill.Shill, error) {
	dao := new(ShillDao)
	err := withTallies(s.db.NewSelect().Model(dao)).
		Where("s.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShillNotFound
		}
		return nil, fmt.Errorf("failed to get shill: %w", err)
	}
	return toShill(dao), nil
}

func (s *pgStore) GetActiveShillByCreator(ctx context.Context, creatorID int64, expandCreator bool) (*shill.Shill, error) {
	dao := new(ShillDao)
	q := withTallies(s.db.NewSelect().Model(dao)).
		Where("s.creator_id = ?", creatorID).
		Where("s.active")
	if expandCreator {
		q = q.Relation("Creator")
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShillNotFound
		}
		return nil, fmt.Errorf("failed to get active shill: %w", err)
	}
	return toShill(dao), nil
}

func (s *pgStore) CancelShill(ctx context.Context, id int64) error {
	res, err := s.db.NewUpdate().
		Model((*ShillDao)(nil)).
		Set("active = FALSE").
		Where("id = ?", id).
		Where("active").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to cancel shill: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		exists, err := s.shillExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrShillNotFound
		}
		return ErrShillInactive
	}
	return nil
}

// ResolveShill flips a pending shill to the given status. The conditional
// update makes the first response win when two viewers race.
func (s *pgStore) ResolveShill(ctx context.Context, id int64, status shill.Status) (*shill.Shill, error) {
	dao := new(ShillDao)
	res, err := s.db.NewUpdate().
		Model(dao).
		Set("status = ?", string(status)).
		Where("id = ?", id).
		Where("status = ?", string(shill.StatusPending)).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shill: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		exists, err := s.shillExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrShillNotFound
		}
		return nil, ErrShillNotPending
	}
	return toShill(dao), nil
}

func (s *pgStore) shillExists(ctx context.Context, id int64) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*ShillDao)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check shill exists: %w", err)
	}
	return exists, nil
}

// RecordResult stores a viewer's verdict and settles every derived value in
// one transaction: the vote upsert, the recomputed tallies, the creator's
// streak and shill counters, and the viewer's completion mark.
func (s *pgStore) RecordResult(ctx context.Context, shillID, userID int64, result shill.Result) (*shill.Tally, error) {
	tally := new(shill.Tally)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		sh := new(ShillDao)
		err := tx.NewSelect().
			Model(sh).
			Where("s.id = ?", shillID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrShillNotFound
			}
			return fmt.Errorf("failed to get shill: %w", err)
		}
		if sh.Status != string(shill.StatusAccepted) {
			return ErrShillNotAccepted
		}

		vote := &ShillResultDao{
			ShillID: shillID,
			UserID:  userID,
			Result:  string(result),
		}
		_, err = tx.NewInsert().
			Model(vote).
			On("CONFLICT (shill_id, user_id) DO UPDATE").
			Set("result = EXCLUDED.result").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to record verdict: %w", err)
		}

		err = tx.NewSelect().
			Model((*ShillResultDao)(nil)).
			ColumnExpr("COUNT(*) FILTER (WHERE result = ?)", string(shill.ResultProfit)).
			ColumnExpr("COUNT(*) FILTER (WHERE result = ?)", string(shill.ResultLoss)).
			Where("shill_id = ?", shillID).
			Scan(ctx, &tally.ProfitCount, &tally.LossCount)
		if err != nil {
			return fmt.Errorf("failed to derive tallies: %w", err)
		}

		creator := tx.NewUpdate().
			TableExpr("users").
			Set("shills = shills + 1").
			Where("id = ?", sh.CreatorID)
		if tally.ProfitCount > tally.LossCount {
			creator = creator.Set("current_streak = current_streak + 1")
		} else {
			creator = creator.Set("current_streak = 0")
		}
		if _, err = creator.Exec(ctx); err != nil {
			return fmt.Errorf("failed to update creator counters: %w", err)
		}

		completed := &CompletedShillDao{
			UserID:  userID,
			ShillID: shillID,
		}
		_, err = tx.NewInsert().
			Model(completed).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark shill completed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tally, nil
}

func (s *pgStore) ListRecentActive(ctx context.Context, limit int) ([]*shill.Shill, error) {
	var daos []ShillDao
	err := withTallies(s.db.NewSelect().Model(&daos)).
		Relation("Creator").
		Where("s.active").
		Order("s.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent shills: %w", err)
	}
	return toShills(daos), nil
}

func (s *pgStore) ListActiveByCreators(ctx context.Context, viewerID int64, creatorIDs []int64) ([]*shill.Shill, error) {
	if len(creatorIDs) == 0 {
		return nil, nil
	}

	var daos []ShillDao
	err := withTallies(s.db.NewSelect().Model(&daos)).
		Relation("Creator").
		Where("s.active").
		Where("s.creator_id IN (?)", bun.In(creatorIDs)).
		Where("s.id NOT IN (SELECT shill_id FROM completed_shills WHERE user_id = ?)", viewerID).
		Order("s.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed shills: %w", err)
	}
	return toShills(daos), nil
}

func toShills(daos []ShillDao) []*shill.Shill {
	shills := make([]*shill.Shill, len(daos))
	for i := range daos {
		shills[i] = toShill(&daos[i])
	}
	return shills
}
