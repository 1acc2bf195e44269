// Package shill holds the domain model for token-promotion posts and the
// verdicts recorded against them.
package shill

import (
	"time"

	"github.com/shillspot/shillspot/pkg/user"
)

// Status is the viewer-side acceptance state of a shill. It is independent
// of Active: a creator may cancel a shill in any status, and a declined
// shill stays inactive forever.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Result is a viewer's verdict on an accepted shill.
type Result string

const (
	ResultProfit Result = "profit"
	ResultLoss   Result = "loss"
)

// Valid reports whether r is a recordable verdict.
func (r Result) Valid() bool {
	return r == ResultProfit || r == ResultLoss
}

// Shill is a creator's promotional post about a token. ProfitCount and
// LossCount are derived from the verdict rows at read time; they are never
// stored or incremented independently.
type Shill struct {
	ID           int64     `json:"id"`
	CreatorID    int64     `json:"creatorId"`
	TokenAddress string    `json:"tokenAddress"`
	Reason       string    `json:"reason"`
	Active       bool      `json:"active"`
	Status       Status    `json:"status"`
	ProfitCount  int       `json:"profitCount"`
	LossCount    int       `json:"lossCount"`
	CreatedAt    time.Time `json:"createdAt"`

	// Expanded creator, populated by viewer-facing queries.
	Creator *user.Summary `json:"creator,omitempty"`
}

// Announcement is the blind feed view of a shill: creator and timestamp
// only, never the token address or reason.
type Announcement struct {
	ID        int64         `json:"id"`
	Creator   *user.Summary `json:"creator"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Tally is the derived profit/loss aggregate for one shill.
type Tally struct {
	ProfitCount int `json:"profitCount"`
	LossCount   int `json:"lossCount"`
}

// CreateRequest carries a new shill submission.
type CreateRequest struct {
	TokenAddress string `json:"tokenAddress" validate:"required"`
	Reason       string `json:"reason" validate:"required,max=140"`
}

// ResultRequest carries a viewer's verdict.
type ResultRequest struct {
	Result Result `json:"result" validate:"required,oneof=profit loss"`
}

// ResultResponse is returned from RecordResult with the derived tallies.
type ResultResponse struct {
	ProfitCount int  `json:"profitCount"`
	LossCount   int  `json:"lossCount"`
	Completed   bool `json:"completed"`
}
