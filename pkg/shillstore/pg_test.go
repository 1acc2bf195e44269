package shillstore

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/shillspot/shillspot/pkg/pgutil"
	mghelper "github.com/shillspot/shillspot/pkg/pgutil/migrations"
	"github.com/shillspot/shillspot/pkg/shill"
	"github.com/shillspot/shillspot/pkg/user"
	"github.com/shillspot/shillspot/pkg/userstore"
)

func setupStore(t *testing.T) (context.Context, *pgStore, userstore.Store) {
	t.Helper()
	requireDockerAccess(t)

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	models := []any{
		&userstore.UserDao{},
		&ShillDao{},
		&ShillResultDao{},
		&CompletedShillDao{},
	}
	if err := mghelper.CreateSchema(ctx, db, models...); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_shills_one_active_per_creator ON shills (creator_id) WHERE active",
	); err != nil {
		t.Fatalf("failed to create partial unique index: %v", err)
	}

	return ctx, NewStore(db), userstore.NewStore(db)
}

func requireDockerAccess(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}

	for _, sock := range candidates {
		if sock == "" {
			continue
		}
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed shillstore tests")
}

func mustCreateUser(t *testing.T, ctx context.Context, users userstore.Store, handle string, role user.Role) *user.User {
	t.Helper()
	u := &user.User{
		Handle:        handle,
		PasswordHash:  "$2a$10$abcdefghijklmnopqrstuv",
		WalletAddress: "0x2222222222222222222222222222222222222222",
		Role:          role,
	}
	if err := users.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", handle, err)
	}
	return u
}

func mustCreateShill(t *testing.T, ctx context.Context, s *pgStore, creatorID int64) *shill.Shill {
	t.Helper()
	sh := &shill.Shill{
		CreatorID:    creatorID,
		TokenAddress: "0x3333333333333333333333333333333333333333",
		Reason:       "to the moon",
	}
	if err := s.CreateShill(ctx, sh); err != nil {
		t.Fatalf("CreateShill() failed: %v", err)
	}
	return sh
}

func TestShillPGStore_CreateAndActiveUniqueness(t *testing.T) {
	ctx, s, users := setupStore(t)

	creator := mustCreateUser(t, ctx, users, "creator", user.RoleShiller)
	sh := mustCreateShill(t, ctx, s, creator.ID)

	if sh.ID == 0 {
		t.Fatalf("expected CreateShill to populate the id")
	}
	if !sh.Active || sh.Status != shill.StatusPending {
		t.Fatalf("expected new shill to be active and pending, got active=%v status=%s", sh.Active, sh.Status)
	}

	second := &shill.Shill{
		CreatorID:    creator.ID,
		TokenAddress: "0x4444444444444444444444444444444444444444",
		Reason:       "double dip",
	}
	if err := s.CreateShill(ctx, second); !errors.Is(err, ErrActiveShillExists) {
		t.Fatalf("expected ErrActiveShillExists, got %v", err)
	}

	if err := s.CancelShill(ctx, sh.ID); err != nil {
		t.Fatalf("CancelShill() failed: %v", err)
	}

	// Cancelling frees the creator's active slot.
	if err := s.CreateShill(ctx, second); err != nil {
		t.Fatalf("CreateShill() after cancel failed: %v", err)
	}

	if err := s.CancelShill(ctx, sh.ID); !errors.Is(err, ErrShillInactive) {
		t.Fatalf("expected ErrShillInactive, got %v", err)
	}
	if err := s.CancelShill(ctx, 99999); !errors.Is(err, ErrShillNotFound) {
		t.Fatalf("expected ErrShillNotFound, got %v", err)
	}
}

func TestShillPGStore_ResolveShill(t *testing.T) {
	ctx, s, users := setupStore(t)

	creator := mustCreateUser(t, ctx, users, "resolver", user.RoleShiller)
	sh := mustCreateShill(t, ctx, s, creator.ID)

	accepted, err := s.ResolveShill(ctx, sh.ID, shill.StatusAccepted)
	if err != nil {
		t.Fatalf("ResolveShill(accepted) failed: %v", err)
	}
	if accepted.Status != shill.StatusAccepted {
		t.Fatalf("expected accepted status, got %s", accepted.Status)
	}

	// Only the first response wins, whichever direction the second goes.
	if _, err := s.ResolveShill(ctx, sh.ID, shill.StatusAccepted); !errors.Is(err, ErrShillNotPending) {
		t.Fatalf("expected ErrShillNotPending on second accept, got %v", err)
	}
	if _, err := s.ResolveShill(ctx, sh.ID, shill.StatusDeclined); !errors.Is(err, ErrShillNotPending) {
		t.Fatalf("expected ErrShillNotPending on decline after accept, got %v", err)
	}

	if _, err := s.ResolveShill(ctx, 99999, shill.StatusAccepted); !errors.Is(err, ErrShillNotFound) {
		t.Fatalf("expected ErrShillNotFound, got %v", err)
	}
}

func TestShillPGStore_RecordResult(t *testing.T) {
	ctx, s, users := setupStore(t)

	creator := mustCreateUser(t, ctx, users, "tallied", user.RoleShiller)
	voterA := mustCreateUser(t, ctx, users, "voter_a", user.RoleUser)
	voterB := mustCreateUser(t, ctx, users, "voter_b", user.RoleUser)
	sh := mustCreateShill(t, ctx, s, creator.ID)

	if _, err := s.RecordResult(ctx, sh.ID, voterA.ID, shill.ResultProfit); !errors.Is(err, ErrShillNotAccepted) {
		t.Fatalf("expected ErrShillNotAccepted for pending shill, got %v", err)
	}
	if _, err := s.RecordResult(ctx, 99999, voterA.ID, shill.ResultProfit); !errors.Is(err, ErrShillNotFound) {
		t.Fatalf("expected ErrShillNotFound, got %v", err)
	}

	if _, err := s.ResolveShill(ctx, sh.ID, shill.StatusAccepted); err != nil {
		t.Fatalf("ResolveShill() failed: %v", err)
	}

	tally, err := s.RecordResult(ctx, sh.ID, voterA.ID, shill.ResultProfit)
	if err != nil {
		t.Fatalf("RecordResult(profit) failed: %v", err)
	}
	if tally.ProfitCount != 1 || tally.LossCount != 0 {
		t.Fatalf("unexpected tally after first vote: %+v", tally)
	}

	tally, err = s.RecordResult(ctx, sh.ID, voterB.ID, shill.ResultLoss)
	if err != nil {
		t.Fatalf("RecordResult(loss) failed: %v", err)
	}
	if tally.ProfitCount != 1 || tally.LossCount != 1 {
		t.Fatalf("unexpected tally after second vote: %+v", tally)
	}

	// A re-vote overwrites the old verdict; the tallies stay consistent with
	// the verdict rows instead of drifting upward.
	tally, err = s.RecordResult(ctx, sh.ID, voterA.ID, shill.ResultLoss)
	if err != nil {
		t.Fatalf("RecordResult(re-vote) failed: %v", err)
	}
	if tally.ProfitCount != 0 || tally.LossCount != 2 {
		t.Fatalf("unexpected tally after re-vote: %+v", tally)
	}

	got, err := s.GetShill(ctx, sh.ID)
	if err != nil {
		t.Fatalf("GetShill() failed: %v", err)
	}
	if got.ProfitCount != 0 || got.LossCount != 2 {
		t.Fatalf("read-side tallies out of sync: %+v", got)
	}

	// Streak derives from the current aggregate each call; losses reset it.
	// The creator's shill counter moves once per recorded verdict.
	updatedCreator, err := users.GetUserByID(ctx, creator.ID)
	if err != nil {
		t.Fatalf("GetUserByID(creator) failed: %v", err)
	}
	if updatedCreator.CurrentStreak != 0 {
		t.Fatalf("expected streak reset with losses ahead, got %d", updatedCreator.CurrentStreak)
	}
	if updatedCreator.Shills != 3 {
		t.Fatalf("expected shills counter 3 after three recorded verdicts, got %d", updatedCreator.Shills)
	}
}

func TestShillPGStore_ListActiveByCreatorsExcludesCompleted(t *testing.T) {
	ctx, s, users := setupStore(t)

	creatorA := mustCreateUser(t, ctx, users, "followed_a", user.RoleShiller)
	creatorB := mustCreateUser(t, ctx, users, "followed_b", user.RoleShiller)
	viewer := mustCreateUser(t, ctx, users, "viewer", user.RoleUser)

	shA := mustCreateShill(t, ctx, s, creatorA.ID)
	shB := mustCreateShill(t, ctx, s, creatorB.ID)

	got, err := s.ListActiveByCreators(ctx, viewer.ID, []int64{creatorA.ID, creatorB.ID})
	if err != nil {
		t.Fatalf("ListActiveByCreators() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both shills before completion, got %d", len(got))
	}
	if got[0].Creator == nil || got[0].Creator.Handle == "" {
		t.Fatalf("expected creator to be expanded, got %+v", got[0].Creator)
	}

	if _, err := s.ResolveShill(ctx, shA.ID, shill.StatusAccepted); err != nil {
		t.Fatalf("ResolveShill() failed: %v", err)
	}
	if _, err := s.RecordResult(ctx, shA.ID, viewer.ID, shill.ResultProfit); err != nil {
		t.Fatalf("RecordResult() failed: %v", err)
	}

	got, err = s.ListActiveByCreators(ctx, viewer.ID, []int64{creatorA.ID, creatorB.ID})
	if err != nil {
		t.Fatalf("ListActiveByCreators() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != shB.ID {
		t.Fatalf("expected only the uncompleted shill, got %+v", got)
	}

	got, err = s.ListActiveByCreators(ctx, viewer.ID, nil)
	if err != nil {
		t.Fatalf("ListActiveByCreators(no creators) failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list when following nobody, got %d", len(got))
	}
}

func TestShillPGStore_ListRecentActive(t *testing.T) {
	ctx, s, users := setupStore(t)

	first := mustCreateUser(t, ctx, users, "early", user.RoleShiller)
	second := mustCreateUser(t, ctx, users, "late", user.RoleShiller)

	shFirst := mustCreateShill(t, ctx, s, first.ID)
	shSecond := mustCreateShill(t, ctx, s, second.ID)

	if err := s.CancelShill(ctx, shFirst.ID); err != nil {
		t.Fatalf("CancelShill() failed: %v", err)
	}

	got, err := s.ListRecentActive(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentActive() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != shSecond.ID {
		t.Fatalf("expected only the active shill, got %+v", got)
	}
	if got[0].Creator == nil || got[0].Creator.Handle != "late" {
		t.Fatalf("expected creator to be expanded, got %+v", got[0].Creator)
	}
}
