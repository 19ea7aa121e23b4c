// Package stats aggregates a library into the numbers shown on the home page.
package stats

import (
	"sort"
	"time"

	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/sorting"
)

const (
	TopYearCount  = 3
	ShortlistSize = 10
)

// Compute summarizes entries. Logged years come from LoggedDate, completed years from
// CompletionDate; entries with malformed dates only count towards the totals.
func Compute(entries []domain.Entry, now time.Time) domain.Summary {
	s := domain.Summary{
		Total:           len(entries),
		ByYear:          map[int]int{},
		CompletedByYear: map[int]int{},
	}

	var ratingSum float64
	for _, e := range entries {
		if e.Completed() {
			s.Completed++
		}
		if e.Rated() {
			s.Rated++
			ratingSum += e.RatingValue()
		}
		if t, ok := domain.ParseDate(e.LoggedDate); ok {
			s.ByYear[t.Year()]++
		}
		if t, ok := domain.ParseDate(e.CompletionDate); ok {
			s.CompletedByYear[t.Year()]++
		}
	}

	if s.Rated > 0 {
		s.AverageRating = ratingSum / float64(s.Rated)
	}

	seen := map[int]bool{}
	for y := range s.ByYear {
		seen[y] = true
	}
	for y := range s.CompletedByYear {
		seen[y] = true
	}
	s.Years = make([]int, 0, len(seen))
	for y := range seen {
		s.Years = append(s.Years, y)
	}
	sort.Ints(s.Years)

	if len(s.Years) > 0 {
		logged := 0
		for _, n := range s.ByYear {
			logged += n
		}
		s.AveragePerYear = float64(logged) / float64(len(s.Years))
	}

	s.TopYears = TopYears(s.ByYear, TopYearCount)
	s.CurrentYear = domain.YearCount{Year: now.Year(), Count: s.ByYear[now.Year()]}
	for _, y := range s.TopYears {
		if y.Year == now.Year() {
			s.CurrentYearInTop = true
		}
	}

	s.RecentlyLogged = head(sorting.Sort(entries, domain.OrderChronological, domain.Descending), ShortlistSize)

	rated := make([]domain.Entry, 0, s.Rated)
	for _, e := range entries {
		if e.RatingValue() > 0 {
			rated = append(rated, e)
		}
	}
	s.BestRated = head(sorting.Sort(rated, domain.OrderRating, domain.Descending), ShortlistSize)

	return s
}

// TopYears returns the n years with the most entries, the later year first on ties
func TopYears(byYear map[int]int, n int) []domain.YearCount {
	out := make([]domain.YearCount, 0, len(byYear))
	for y, c := range byYear {
		out = append(out, domain.YearCount{Year: y, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Year > out[j].Year
	})
	return out[:min(n, len(out))]
}

// ByMonth counts the entries logged in each month of year
func ByMonth(entries []domain.Entry, year int) [12]int {
	var months [12]int
	for _, e := range entries {
		t, ok := domain.ParseDate(e.LoggedDate)
		if !ok || t.Year() != year {
			continue
		}
		months[t.Month()-1]++
	}
	return months
}

func head(rows []domain.Entry, n int) []domain.Entry {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
