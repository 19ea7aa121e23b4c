// Package library drives the list and detail views of one table.
package library

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/store"
)

// Browser serializes list requests of one view of one owner's entries. Every Load takes a new
// generation, a response that comes back after a newer Load was issued is dropped.
type Browser struct {
	log   zerolog.Logger
	store store.Service
	kind  domain.Kind
	owner int

	mu      sync.Mutex
	gen     uint64
	current *domain.ListResult
	params  domain.ListParams
}

func NewBrowser(log zerolog.Logger, svc store.Service, kind domain.Kind, ownerID int) *Browser {
	return &Browser{
		log:   log.With().Str("module", "library").Str("table", kind.Table()).Int("owner", ownerID).Logger(),
		store: svc,
		kind:  kind,
		owner: ownerID,
	}
}

func (b *Browser) Kind() domain.Kind {
	return b.kind
}

// Load lists entries with params and publishes the result unless a newer Load started meanwhile,
// in which case domain.ErrSuperseded is returned. params.OwnerID is always the browser's owner.
func (b *Browser) Load(ctx context.Context, params domain.ListParams) (*domain.ListResult, error) {
	params.OwnerID = b.owner

	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.mu.Unlock()

	res, err := b.store.List(ctx, b.kind, params)

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen {
		b.log.Trace().Uint64("generation", gen).Uint64("latest", b.gen).Msg("discarding superseded list result")
		return nil, domain.ErrSuperseded
	}
	if err != nil {
		return nil, err
	}

	b.current = res
	b.params = params
	return res, nil
}

// Current returns the last published page and the parameters it was loaded with
func (b *Browser) Current() (*domain.ListResult, domain.ListParams) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.params
}

func (b *Browser) Get(ctx context.Context, id int) (*domain.Entry, error) {
	return b.store.GetByID(ctx, b.kind, b.owner, id)
}

// prepare validates the form values and stores dates in the display layout
func (b *Browser) prepare(e domain.Entry) (domain.Entry, error) {
	e.Name = strings.TrimSpace(e.Name)
	e.ExternalTitleID = strings.TrimSpace(e.ExternalTitleID)

	if err := domain.ValidateEntry(b.kind, e); err != nil {
		return e, err
	}

	var err error
	if e.LoggedDate, err = domain.NormalizeDate(e.LoggedDate); err != nil {
		return e, err
	}
	if e.CompletionDate, err = domain.NormalizeDate(e.CompletionDate); err != nil {
		return e, err
	}
	return e, nil
}

// Create validates e and inserts it for the browser's owner, the returned id comes from the backend
func (b *Browser) Create(ctx context.Context, e domain.Entry) (int, error) {
	e.OwnerID = b.owner
	e, err := b.prepare(e)
	if err != nil {
		return 0, err
	}
	return b.store.Create(ctx, b.kind, e)
}

func (b *Browser) Update(ctx context.Context, id int, e domain.Entry) error {
	e, err := b.prepare(e)
	if err != nil {
		return err
	}
	return b.store.Update(ctx, b.kind, b.owner, id, e)
}

func (b *Browser) Delete(ctx context.Context, id int) error {
	return b.store.Remove(ctx, b.kind, b.owner, id)
}
