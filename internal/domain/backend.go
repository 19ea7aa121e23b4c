package domain

import (
	"context"
	"fmt"
	"strings"
)

// OrderMode is the user-visible ordering of a list view
type OrderMode string

const (
	OrderChronological OrderMode = "chronological"
	OrderAlphabetical  OrderMode = "alphabetical"
	OrderRating        OrderMode = "rating"
)

// ParseOrderMode defaults to chronological for empty input
func ParseOrderMode(s string) (OrderMode, error) {
	switch OrderMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderChronological, "date":
		return OrderChronological, nil
	case OrderAlphabetical, "name":
		return OrderAlphabetical, nil
	case OrderRating:
		return OrderRating, nil
	}
	return "", NewValidationError("order", "unknown order %q (must be 'chronological', 'alphabetical' or 'rating')", s)
}

// Direction of an ordering
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection defaults to descending for empty input
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", Descending:
		return Descending, nil
	case Ascending:
		return Ascending, nil
	}
	return "", NewValidationError("direction", "unknown direction %q (must be 'asc' or 'desc')", s)
}

// Column identifies an Entry field on the backend
type Column string

const (
	ColumnID              Column = "id"
	ColumnOwnerID         Column = "owner_id"
	ColumnName            Column = "name"
	ColumnLoggedDate      Column = "logged_date"
	ColumnCompletionDate  Column = "completion_date"
	ColumnRating          Column = "rating"
	ColumnExternalTitleID Column = "external_title_id"
)

// Order is an ordering hint passed to the backend
type Order struct {
	Column    Column
	Direction Direction
	Secondary *Order
}

func (o *Order) String() string {
	if o == nil {
		return ""
	}
	s := fmt.Sprintf("%s.%s", o.Column, o.Direction)
	if o.Secondary != nil {
		s += "," + o.Secondary.String()
	}
	return s
}

// Query filters a backend select. Zero values mean "no filter".
type Query struct {
	ID           int
	OwnerID      int
	NameContains string
	Order        *Order
	Limit        int
}

// Backend is the opaque row store the application delegates persistence to. Update and
// Delete only touch a row that belongs to ownerID.
type Backend interface {
	Select(ctx context.Context, kind Kind, q Query) ([]Entry, int, error)
	Insert(ctx context.Context, kind Kind, e Entry) (int, error)
	Update(ctx context.Context, kind Kind, ownerID, id int, e Entry) error
	Delete(ctx context.Context, kind Kind, ownerID, id int) error
	MaxID(ctx context.Context, kind Kind) (int, error)
}

// ListParams describes one list view request
type ListParams struct {
	OwnerID    int
	NameFilter string
	Order      OrderMode
	Direction  Direction
	Page       int
	PageSize   int
}

// ListResult is one page plus the size of the whole filtered set
type ListResult struct {
	Entries    []Entry
	TotalCount int
	Page       int
	PageSize   int
}
