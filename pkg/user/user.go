// Package user holds the domain model for platform members and the
// follow-request workflow between them.
package user

import "time"

// Role classifies a member's capabilities on the platform.
type Role string

const (
	// RoleUser is a regular member: follows shillers and records verdicts.
	RoleUser Role = "user"
	// RoleShiller is a content-creator member permitted to post shills.
	RoleShiller Role = "shiller"
)

// User represents the domain model for a registered member.
// PasswordHash is the bcrypt digest of the login password and never
// leaves the service layer.
type User struct {
	ID             int64
	Handle         string
	PasswordHash   string
	WalletAddress  string
	ProfilePicture string
	Role           Role
	Shills         int
	Points         int
	CurrentStreak  int
	CreatedAt      time.Time
}

// Summary is the expanded form of a user reference embedded in API views.
// References are resolved once at the data-access layer; everything above
// it works with either a plain id or this struct, never both.
type Summary struct {
	ID             int64  `json:"id"`
	Handle         string `json:"handle"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	WalletAddress  string `json:"walletAddress,omitempty"`
	Role           Role   `json:"role,omitempty"`
	Points         int    `json:"points,omitempty"`
	Shills         int    `json:"shills,omitempty"`
}

// Summary returns the reference view of u.
func (u *User) Summary() *Summary {
	return &Summary{
		ID:             u.ID,
		Handle:         u.Handle,
		ProfilePicture: u.ProfilePicture,
		WalletAddress:  u.WalletAddress,
		Role:           u.Role,
		Points:         u.Points,
		Shills:         u.Shills,
	}
}

// RequestStatus is the state of a follow request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// Valid reports whether s is a status a recipient may set.
func (s RequestStatus) Valid() bool {
	return s == RequestAccepted || s == RequestDeclined
}

// FollowRequest is a pairwise edge-creation proposal subject to recipient
// approval. At most one request exists per (requester, recipient) pair,
// whatever its status; re-requesting after a decline requires deleting the
// old row first.
type FollowRequest struct {
	ID          int64         `json:"id"`
	RequesterID int64         `json:"requesterId"`
	RecipientID int64         `json:"recipientId"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`

	// Expanded counterpart, populated by listing queries.
	Requester *Summary `json:"requester,omitempty"`
	Recipient *Summary `json:"recipient,omitempty"`
}

// RegisterRequest carries a new member registration.
type RegisterRequest struct {
	Handle        string `json:"handle" validate:"required,min=3,max=32"`
	Password      string `json:"password" validate:"required,min=6"`
	WalletAddress string `json:"walletAddress" validate:"required"`
	Role          Role   `json:"role" validate:"omitempty,oneof=user shiller"`
}

// LoginRequest carries a login attempt.
type LoginRequest struct {
	Handle   string `json:"handle" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned from registration and login.
type AuthResponse struct {
	ID             int64  `json:"id"`
	Handle         string `json:"handle"`
	WalletAddress  string `json:"walletAddress"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Role           Role   `json:"role"`
	Token          string `json:"token"`
}

// Profile is the authenticated self view.
type Profile struct {
	ID             int64  `json:"id"`
	Handle         string `json:"handle"`
	WalletAddress  string `json:"walletAddress"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Role           Role   `json:"role"`
	Followers      int    `json:"followers"`
	Following      int    `json:"following"`
	Shills         int    `json:"shills"`
	Points         int    `json:"points"`
	CurrentStreak  int    `json:"currentStreak"`
}
