package domain

import (
	"context"
	"time"
)

// ImageSource tells where an image reference came from
type ImageSource string

const (
	SourceLocal       ImageSource = "local"
	SourceHistory     ImageSource = "history"
	SourceProvider    ImageSource = "provider"
	SourcePlaceholder ImageSource = "placeholder"
)

// ImageRef is a displayable image: a static path, a URL or a data URL
type ImageRef struct {
	Source ImageSource `json:"source"`
	Value  string      `json:"value"`
}

func (r ImageRef) IsPlaceholder() bool {
	return r.Source == SourcePlaceholder
}

// CachedImage is a resolved cover persisted by entry name
type CachedImage struct {
	Name     string
	Kind     Kind
	Source   ImageSource
	Value    string
	CachedAt time.Time
}

// Ref converts the cache row into an image reference
func (c CachedImage) Ref() ImageRef {
	return ImageRef{Source: c.Source, Value: c.Value}
}

// ImageCacheRepo persists resolved covers keyed by the exact entry name
type ImageCacheRepo interface {
	GetImage(ctx context.Context, name string) (*CachedImage, error)
	PutImage(ctx context.Context, img CachedImage) error
	DeleteImage(ctx context.Context, name string) error
	PurgeImages(ctx context.Context) (int, error)
	CountImages(ctx context.Context) (int, error)
}

// Candidate is one image search result
type Candidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

//go:generate mockgen -destination=../mocks/search.go -package=mocks . SearchProvider

// SearchProvider finds cover candidates for a free-form query
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}
