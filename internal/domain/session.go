package domain

import (
	"context"
	"time"
)

// User is the profile row linked to an authenticated account
type User struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Gamertag string `json:"gamertag,omitempty"`
	Xuid     string `json:"xuid,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// HistoryKey is the identity the play-history feed is keyed by
func (u User) HistoryKey() string {
	return u.Xuid
}

// Session is the result of a successful sign in
type Session struct {
	AccessToken string    `json:"accessToken"`
	User        User      `json:"user"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Authenticator signs a user in against the backend
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
}

// SessionRepo persists the current session locally
type SessionRepo interface {
	GetSession(ctx context.Context) (*Session, error)
	SaveSession(ctx context.Context, s Session) error
	DeleteSession(ctx context.Context) error
}
