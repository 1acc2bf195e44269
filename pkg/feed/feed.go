// Package feed holds the view models for the public discovery surfaces.
package feed

// BoardEntry is one row of the top-shillers leaderboard.
type BoardEntry struct {
	ID        int64  `json:"id"`
	Handle    string `json:"handle"`
	Points    int    `json:"points"`
	Followers int    `json:"followers"`
	Shills    int    `json:"shills"`
}
