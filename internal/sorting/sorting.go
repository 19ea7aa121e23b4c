// Package sorting orders and pages the in-memory result sets of list views.
package sorting

import (
	"slices"

	"github.com/varoOP/backlogdb/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultLocale is used for alphabetical ordering when none is configured
var DefaultLocale = language.BrazilianPortuguese

type options struct {
	locale language.Tag
}

type Option func(*options)

// WithLocale sets the collation locale for alphabetical ordering
func WithLocale(tag language.Tag) Option {
	return func(o *options) {
		o.locale = tag
	}
}

// ParseLocale returns DefaultLocale for empty or invalid input
func ParseLocale(s string) language.Tag {
	if s == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLocale
	}
	return tag
}

// Sort returns a new slice ordered by mode and direction. The input is left untouched and
// entries with equal keys keep their input order.
func Sort(rows []domain.Entry, mode domain.OrderMode, dir domain.Direction, opts ...Option) []domain.Entry {
	o := options{locale: DefaultLocale}
	for _, opt := range opts {
		opt(&o)
	}

	if dir != domain.Ascending {
		dir = domain.Descending
	}

	out := slices.Clone(rows)
	if out == nil {
		out = []domain.Entry{}
	}

	switch mode {
	case domain.OrderAlphabetical:
		sortAlphabetical(out, dir, o.locale)
	case domain.OrderRating:
		out = sortRating(out, dir)
	default:
		sortChronological(out, dir)
	}

	return out
}

func sortAlphabetical(rows []domain.Entry, dir domain.Direction, locale language.Tag) {
	// Collators are not safe for concurrent use, one per call.
	c := collate.New(locale, collate.IgnoreCase)
	slices.SortStableFunc(rows, func(a, b domain.Entry) int {
		return directed(c.CompareString(a.Name, b.Name), dir)
	})
}

func sortChronological(rows []domain.Entry, dir domain.Direction) {
	slices.SortStableFunc(rows, func(a, b domain.Entry) int {
		return directed(domain.DateKey(a.LoggedDate).Compare(domain.DateKey(b.LoggedDate)), dir)
	})
}

// sortRating places unrated entries after every rated one when descending and before
// them when ascending. Ties on rating fall back to the most recent logged date.
func sortRating(rows []domain.Entry, dir domain.Direction) []domain.Entry {
	rated := make([]domain.Entry, 0, len(rows))
	unrated := make([]domain.Entry, 0)
	for _, e := range rows {
		if e.Rated() {
			rated = append(rated, e)
		} else {
			unrated = append(unrated, e)
		}
	}

	slices.SortStableFunc(rated, func(a, b domain.Entry) int {
		if c := directed(compareFloat(*a.Rating, *b.Rating), dir); c != 0 {
			return c
		}
		return domain.DateKey(b.LoggedDate).Compare(domain.DateKey(a.LoggedDate))
	})

	if dir == domain.Ascending {
		return append(unrated, rated...)
	}
	return append(rated, unrated...)
}

func directed(c int, dir domain.Direction) int {
	if dir == domain.Descending {
		return -c
	}
	return c
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Paginate slices a sorted set. Pages are 1-based, a page past the end is empty.
func Paginate(rows []domain.Entry, page, pageSize int) []domain.Entry {
	if page < 1 || pageSize < 1 {
		return []domain.Entry{}
	}

	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []domain.Entry{}
	}

	end := min(start+pageSize, len(rows))
	return slices.Clone(rows[start:end])
}

// PageCount is the number of pages needed for total rows
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
