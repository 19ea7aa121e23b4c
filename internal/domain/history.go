package domain

import (
	"context"
	"time"
)

// SnapshotVersion is bumped whenever the persisted snapshot payload changes shape
const SnapshotVersion = 1

// Title is one item of the external play-history feed
type Title struct {
	Name         string    `json:"name"`
	ExternalID   string    `json:"externalId"`
	LastPlayed   time.Time `json:"lastPlayedDate"`
	DisplayImage string    `json:"displayImage,omitempty"`
}

// HistorySnapshot is the last successfully fetched history of one user
type HistorySnapshot struct {
	Version   int       `json:"version"`
	UserKey   string    `json:"userKey"`
	Titles    []Title   `json:"titles"`
	FetchedAt time.Time `json:"fetchedAt"`
}

//go:generate mockgen -destination=../mocks/history.go -package=mocks . HistoryFetcher

// HistoryFetcher pulls a user's play history from the external feed
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, userKey string) ([]Title, error)
}

// SnapshotRepo persists history snapshots keyed by user identity
type SnapshotRepo interface {
	GetSnapshot(ctx context.Context, userKey string) (*HistorySnapshot, error)
	SaveSnapshot(ctx context.Context, snap HistorySnapshot) error
	DeleteSnapshot(ctx context.Context, userKey string) error
}
