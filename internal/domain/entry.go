package domain

import (
	"math"
	"strings"
)

// Kind selects which table an Entry belongs to
type Kind string

const (
	KindGame Kind = "games"
	KindBook Kind = "books"
)

// ParseKind accepts the table name or its singular form
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "games", "game":
		return KindGame, nil
	case "books", "book":
		return KindBook, nil
	}
	return "", NewValidationError("kind", "unknown kind %q (must be 'games' or 'books')", s)
}

// Table returns the backend table name
func (k Kind) Table() string {
	return string(k)
}

// Keyword is appended to cover art search queries
func (k Kind) Keyword() string {
	if k == KindBook {
		return "BOOK"
	}
	return "GAME"
}

// Entry is a game or book logged by one user
type Entry struct {
	ID              int      `json:"id" yaml:"id"`
	OwnerID         int      `json:"ownerId" yaml:"ownerId"`
	Name            string   `json:"name" yaml:"name"`
	LoggedDate      string   `json:"loggedDate" yaml:"loggedDate"`
	CompletionDate  string   `json:"completionDate,omitempty" yaml:"completionDate,omitempty"`
	Rating          *float64 `json:"rating" yaml:"rating"`
	ExternalTitleID string   `json:"externalTitleId,omitempty" yaml:"externalTitleId,omitempty"`
}

// Completed reports whether the entry carries a 100% completion date (trophy badge)
func (e Entry) Completed() bool {
	return strings.TrimSpace(e.CompletionDate) != ""
}

// Rated reports whether the entry has a rating
func (e Entry) Rated() bool {
	return e.Rating != nil
}

// RatingValue returns the rating or 0 when unrated
func (e Entry) RatingValue() float64 {
	if e.Rating == nil {
		return 0
	}
	return *e.Rating
}

// Rating is a helper for building entries with a rating literal
func Rating(v float64) *float64 {
	return &v
}

const (
	MinRating  = 0.0
	MaxRating  = 5.0
	RatingStep = 0.25
)

// ValidateEntry checks the fields a detail form requires before anything reaches the store
func ValidateEntry(kind Kind, e Entry) error {
	if strings.TrimSpace(e.Name) == "" {
		return NewValidationError("name", "name is required")
	}

	if _, ok := ParseDate(e.LoggedDate); !ok {
		return NewValidationError("loggedDate", "invalid date %q (expected DD/MM/YYYY)", e.LoggedDate)
	}

	if e.CompletionDate != "" {
		if kind == KindBook {
			return NewValidationError("completionDate", "books do not have a completion date")
		}
		if _, ok := ParseDate(e.CompletionDate); !ok {
			return NewValidationError("completionDate", "invalid date %q (expected DD/MM/YYYY)", e.CompletionDate)
		}
	}

	if e.Rating != nil {
		r := *e.Rating
		if math.IsNaN(r) || r < MinRating || r > MaxRating {
			return NewValidationError("rating", "rating %.2f out of range [0, 5]", r)
		}
		if steps := r / RatingStep; math.Abs(steps-math.Round(steps)) > 1e-9 {
			return NewValidationError("rating", "rating %.2f must be a multiple of 0.25", r)
		}
	}

	if e.ExternalTitleID != "" && kind == KindBook {
		return NewValidationError("externalTitleId", "books do not have an external title id")
	}

	return nil
}
