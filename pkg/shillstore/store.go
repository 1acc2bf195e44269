// Package shillstore persists shills, the verdicts recorded against them,
// and per-viewer completion marks in PostgreSQL.
package shillstore

import (
	"context"
	"errors"

	"github.com/shillspot/shillspot/pkg/shill"
)

// ErrShillNotFound is returned when a shill lookup finds no matching record.
var ErrShillNotFound = errors.New("shill not found")

// ErrActiveShillExists is returned when a creator already has an active
// shill. Enforced by a partial unique index, so it holds under races too.
var ErrActiveShillExists = errors.New("creator already has an active shill")

// ErrShillInactive is returned when cancelling a shill that is already
// inactive.
var ErrShillInactive = errors.New("shill is already inactive")

// ErrShillNotPending is returned when accepting or declining a shill that
// has already been resolved.
var ErrShillNotPending = errors.New("shill already resolved")

// ErrShillNotAccepted is returned when recording a verdict against a shill
// that is not in the accepted status.
var ErrShillNotAccepted = errors.New("shill is not accepted")

// Store defines the interface for shill and verdict persistence.
type Store interface {
	CreateShill(ctx context.Context, sh *shill.Shill) error
	GetShill(ctx context.Context, id int64) (*shill.Shill, error)
	GetActiveShillByCreator(ctx context.Context, creatorID int64, expandCreator bool) (*shill.Shill, error)
	CancelShill(ctx context.Context, id int64) error
	ResolveShill(ctx context.Context, id int64, status shill.Status) (*shill.Shill, error)
	RecordResult(ctx context.Context, shillID, userID int64, result shill.Result) (*shill.Tally, error)
	ListRecentActive(ctx context.Context, limit int) ([]*shill.Shill, error)
	ListActiveByCreators(ctx context.Context, viewerID int64, creatorIDs []int64) ([]*shill.Shill, error)
}
