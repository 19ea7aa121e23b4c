package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/backlogdb/internal/domain"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCompute(t *testing.T) {
	entries := []domain.Entry{
		{ID: 1, Name: "Hades", LoggedDate: "10/02/2023", CompletionDate: "01/05/2024", Rating: domain.Rating(5)},
		{ID: 2, Name: "Celeste", LoggedDate: "20/03/2023", Rating: domain.Rating(4.5)},
		{ID: 3, Name: "Tunic", LoggedDate: "05/01/2024", Rating: domain.Rating(0)},
		{ID: 4, Name: "Inside", LoggedDate: "06/06/2022"},
		{ID: 5, Name: "Limbo", LoggedDate: "07/06/2022"},
		{ID: 6, Name: "Braid", LoggedDate: "12/04/2025", Rating: domain.Rating(3.25)},
		{ID: 7, Name: "Broken", LoggedDate: "not a date"},
	}

	s := Compute(entries, now)

	assert.Equal(t, 7, s.Total)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 4, s.Rated)
	assert.InDelta(t, (5+4.5+0+3.25)/4, s.AverageRating, 1e-9)

	assert.Equal(t, []int{2022, 2023, 2024, 2025}, s.Years)
	assert.Equal(t, map[int]int{2022: 2, 2023: 2, 2024: 1, 2025: 1}, s.ByYear)
	assert.Equal(t, map[int]int{2024: 1}, s.CompletedByYear)
	assert.InDelta(t, 6.0/4, s.AveragePerYear, 1e-9)

	assert.Equal(t, []domain.YearCount{{Year: 2023, Count: 2}, {Year: 2022, Count: 2}, {Year: 2025, Count: 1}}, s.TopYears)
	assert.Equal(t, domain.YearCount{Year: 2025, Count: 1}, s.CurrentYear)
	assert.True(t, s.CurrentYearInTop)

	require.Len(t, s.RecentlyLogged, 7)
	assert.Equal(t, "Braid", s.RecentlyLogged[0].Name)
	assert.Equal(t, "Broken", s.RecentlyLogged[6].Name, "malformed dates sort oldest")

	var best []string
	for _, e := range s.BestRated {
		best = append(best, e.Name)
	}
	assert.Equal(t, []string{"Hades", "Celeste", "Braid"}, best)
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, now)

	assert.Zero(t, s.Total)
	assert.Zero(t, s.AveragePerYear)
	assert.Empty(t, s.Years)
	assert.Empty(t, s.TopYears)
	assert.False(t, s.CurrentYearInTop)
	assert.Empty(t, s.RecentlyLogged)
}

func TestCompute_ShortlistsAreCapped(t *testing.T) {
	var entries []domain.Entry
	for i := 1; i <= 25; i++ {
		entries = append(entries, domain.Entry{ID: i, Name: fmt.Sprintf("Game %02d", i), LoggedDate: fmt.Sprintf("%02d/01/2020", i), Rating: domain.Rating(2)})
	}

	s := Compute(entries, now)
	assert.Len(t, s.RecentlyLogged, ShortlistSize)
	assert.Len(t, s.BestRated, ShortlistSize)
	assert.Equal(t, "Game 25", s.RecentlyLogged[0].Name)
	assert.Equal(t, domain.YearCount{Year: 2025}, s.CurrentYear)
	assert.False(t, s.CurrentYearInTop)
}

func TestByMonth(t *testing.T) {
	entries := []domain.Entry{
		{LoggedDate: "01/01/2024"},
		{LoggedDate: "31/01/2024"},
		{LoggedDate: "15/12/2024"},
		{LoggedDate: "15/12/2023"},
		{LoggedDate: ""},
	}

	got := ByMonth(entries, 2024)
	assert.Equal(t, [12]int{2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, got)
}
