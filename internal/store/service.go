// Package store adapts generic list/get/create/update/delete calls onto a row-store backend.
package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/sorting"
)

// Service is the record store adapter used by every list and detail view. Every read and write
// is scoped to one owner, rows of other owners are reported as not found.
type Service interface {
	List(ctx context.Context, kind domain.Kind, params domain.ListParams) (*domain.ListResult, error)
	GetByID(ctx context.Context, kind domain.Kind, ownerID, id int) (*domain.Entry, error)
	Create(ctx context.Context, kind domain.Kind, e domain.Entry) (int, error)
	Update(ctx context.Context, kind domain.Kind, ownerID, id int, e domain.Entry) error
	Remove(ctx context.Context, kind domain.Kind, ownerID, id int) error
	NextID(ctx context.Context, kind domain.Kind) (int, error)
}

type service struct {
	log      zerolog.Logger
	backend  domain.Backend
	sortOpts []sorting.Option
}

// NewService creates a new record store adapter over backend
func NewService(log zerolog.Logger, backend domain.Backend, opts ...sorting.Option) Service {
	return &service{
		log:      log.With().Str("module", "store").Logger(),
		backend:  backend,
		sortOpts: opts,
	}
}

func noOwner(op string, kind domain.Kind) error {
	return &domain.BackendError{Op: op, Table: kind.Table(), Message: "an owner is required"}
}

// orderHint translates a list view ordering into the column order requested from the backend.
// The backend order is advisory, the final order always comes from the sorting package.
func orderHint(mode domain.OrderMode, dir domain.Direction) *domain.Order {
	switch mode {
	case domain.OrderAlphabetical:
		return &domain.Order{Column: domain.ColumnName, Direction: dir,
			Secondary: &domain.Order{Column: domain.ColumnID, Direction: domain.Ascending}}
	case domain.OrderRating:
		return &domain.Order{Column: domain.ColumnRating, Direction: dir,
			Secondary: &domain.Order{Column: domain.ColumnLoggedDate, Direction: domain.Descending}}
	default:
		return &domain.Order{Column: domain.ColumnLoggedDate, Direction: dir,
			Secondary: &domain.Order{Column: domain.ColumnID, Direction: domain.Ascending}}
	}
}

// List fetches the whole owner and name filtered set, then sorts and pages it in memory.
// A page or page size <= 0 returns the full sorted set.
func (s *service) List(ctx context.Context, kind domain.Kind, params domain.ListParams) (*domain.ListResult, error) {
	if params.OwnerID <= 0 {
		return nil, noOwner("list", kind)
	}

	mode, dir := params.Order, params.Direction
	if dir != domain.Ascending {
		dir = domain.Descending
	}

	rows, total, err := s.backend.Select(ctx, kind, domain.Query{
		OwnerID:      params.OwnerID,
		NameContains: strings.TrimSpace(params.NameFilter),
		Order:        orderHint(mode, dir),
	})
	if err != nil {
		return nil, domain.NewBackendError("list", kind, err)
	}

	// the set is complete at this point, sorting a partial result never happens
	sorted := sorting.Sort(rows, mode, dir, s.sortOpts...)
	if total < len(sorted) {
		total = len(sorted)
	}

	result := &domain.ListResult{
		Entries:    sorted,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}

	if params.Page > 0 && params.PageSize > 0 {
		result.Entries = sorting.Paginate(sorted, params.Page, params.PageSize)
	}

	s.log.Debug().
		Str("table", kind.Table()).
		Str("order", string(mode)).
		Str("direction", string(dir)).
		Int("total", total).
		Int("page", params.Page).
		Int("rows", len(result.Entries)).
		Msg("listed entries")

	return result, nil
}

// GetByID returns a BackendError wrapping domain.ErrNotFound when ownerID has no row with id
func (s *service) GetByID(ctx context.Context, kind domain.Kind, ownerID, id int) (*domain.Entry, error) {
	if ownerID <= 0 {
		return nil, noOwner("get", kind)
	}

	rows, _, err := s.backend.Select(ctx, kind, domain.Query{ID: id, OwnerID: ownerID, Limit: 1})
	if err != nil {
		return nil, domain.NewBackendError("get", kind, err)
	}

	if len(rows) == 0 {
		return nil, domain.NewBackendError("get", kind, errors.Wrapf(domain.ErrNotFound, "no entry with id %d", id))
	}

	e := rows[0]
	return &e, nil
}

// Create inserts e and returns the id generated by the backend. Any id on e is ignored.
func (s *service) Create(ctx context.Context, kind domain.Kind, e domain.Entry) (int, error) {
	if e.OwnerID <= 0 {
		return 0, noOwner("create", kind)
	}
	e.ID = 0

	id, err := s.backend.Insert(ctx, kind, e)
	if err != nil {
		return 0, domain.NewBackendError("create", kind, err)
	}

	s.log.Info().Str("table", kind.Table()).Int("id", id).Str("name", e.Name).Msg("created entry")
	return id, nil
}

func (s *service) Update(ctx context.Context, kind domain.Kind, ownerID, id int, e domain.Entry) error {
	if id <= 0 {
		return &domain.BackendError{Op: "update", Table: kind.Table(), Message: "an id is required to update an entry"}
	}
	if ownerID <= 0 {
		return noOwner("update", kind)
	}

	e.ID = id
	e.OwnerID = ownerID
	if err := s.backend.Update(ctx, kind, ownerID, id, e); err != nil {
		return domain.NewBackendError("update", kind, err)
	}

	s.log.Info().Str("table", kind.Table()).Int("id", id).Msg("updated entry")
	return nil
}

func (s *service) Remove(ctx context.Context, kind domain.Kind, ownerID, id int) error {
	if id <= 0 {
		return &domain.BackendError{Op: "remove", Table: kind.Table(), Message: "an id is required to remove an entry"}
	}
	if ownerID <= 0 {
		return noOwner("remove", kind)
	}

	if err := s.backend.Delete(ctx, kind, ownerID, id); err != nil {
		return domain.NewBackendError("remove", kind, err)
	}

	s.log.Info().Str("table", kind.Table()).Int("id", id).Msg("removed entry")
	return nil
}

// NextID returns the current highest id. It is informational only, ids are generated by the backend.
func (s *service) NextID(ctx context.Context, kind domain.Kind) (int, error) {
	id, err := s.backend.MaxID(ctx, kind)
	if err != nil {
		return 0, domain.NewBackendError("next id", kind, err)
	}
	return id, nil
}
