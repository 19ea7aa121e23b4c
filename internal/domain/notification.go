package domain

import "context"

// NotificationService defines the interface for notification services
type NotificationService interface {
	// SendSummary sends the library statistics
	SendSummary(ctx context.Context, kind Kind, summary Summary) error

	// SendError sends an error notification with error details
	SendError(ctx context.Context, err error) error
}

// YearCount is the number of entries logged in one year
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// Summary holds the aggregate statistics of a library
type Summary struct {
	Total            int         `json:"total"`
	Completed        int         `json:"completed"`
	Rated            int         `json:"rated"`
	AverageRating    float64     `json:"averageRating"`
	Years            []int       `json:"years"`
	ByYear           map[int]int `json:"byYear"`
	CompletedByYear  map[int]int `json:"completedByYear"`
	AveragePerYear   float64     `json:"averagePerYear"`
	TopYears         []YearCount `json:"topYears"`
	CurrentYear      YearCount   `json:"currentYear"`
	CurrentYearInTop bool        `json:"currentYearInTop"`
	RecentlyLogged   []Entry     `json:"recentlyLogged"`
	BestRated        []Entry     `json:"bestRated"`
}
