package library

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/store"
)

// gatedBackend answers selects only once the gate named after the filter is opened
type gatedBackend struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	rows    []domain.Entry
	created []domain.Entry
}

func (g *gatedBackend) gate(name string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[name]
	if !ok {
		ch = make(chan struct{})
		g.gates[name] = ch
	}
	return ch
}

func (g *gatedBackend) Select(ctx context.Context, _ domain.Kind, q domain.Query) ([]domain.Entry, int, error) {
	if q.NameContains != "" {
		select {
		case <-g.gate(q.NameContains):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}

	var out []domain.Entry
	for _, e := range g.rows {
		if q.ID != 0 && e.ID != q.ID {
			continue
		}
		if q.OwnerID != 0 && e.OwnerID != q.OwnerID {
			continue
		}
		if q.NameContains == "" || e.Name == q.NameContains {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (g *gatedBackend) Insert(_ context.Context, _ domain.Kind, e domain.Entry) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, e)
	return len(g.rows) + len(g.created), nil
}

func (g *gatedBackend) Update(context.Context, domain.Kind, int, int, domain.Entry) error { return nil }
func (g *gatedBackend) Delete(context.Context, domain.Kind, int, int) error               { return nil }
func (g *gatedBackend) MaxID(context.Context, domain.Kind) (int, error)                   { return len(g.rows), nil }

const testOwner = 3

func newBrowser(g *gatedBackend) *Browser {
	return NewBrowser(zerolog.Nop(), store.NewService(zerolog.Nop(), g), domain.KindGame, testOwner)
}

func TestBrowser_SupersededLoadIsDiscarded(t *testing.T) {
	g := &gatedBackend{
		gates: map[string]chan struct{}{},
		rows: []domain.Entry{
			{ID: 1, OwnerID: testOwner, Name: "Hades", LoggedDate: "01/01/2024"},
			{ID: 2, OwnerID: testOwner, Name: "Celeste", LoggedDate: "02/01/2024"},
		},
	}
	b := newBrowser(g)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		_, err := b.Load(ctx, domain.ListParams{NameFilter: "Hades"})
		slow <- err
	}()

	// wait until the first request holds its generation
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.gen == 1
	}, time.Second, time.Millisecond)

	close(g.gate("Celeste"))
	res, err := b.Load(ctx, domain.ListParams{NameFilter: "Celeste"})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	close(g.gate("Hades"))
	assert.ErrorIs(t, <-slow, domain.ErrSuperseded)

	current, params := b.Current()
	require.NotNil(t, current)
	assert.Equal(t, "Celeste", current.Entries[0].Name)
	assert.Equal(t, "Celeste", params.NameFilter)
}

func TestBrowser_LoadPublishes(t *testing.T) {
	g := &gatedBackend{gates: map[string]chan struct{}{}, rows: []domain.Entry{{ID: 1, OwnerID: testOwner, Name: "Hades", LoggedDate: "01/01/2024"}, {ID: 2, OwnerID: testOwner + 1, Name: "Tunic", LoggedDate: "01/01/2024"}}}
	b := newBrowser(g)

	cur, _ := b.Current()
	assert.Nil(t, cur)

	res, err := b.Load(context.Background(), domain.ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)

	cur, _ = b.Current()
	assert.Same(t, res, cur)
}

func TestBrowser_CreateValidates(t *testing.T) {
	g := &gatedBackend{gates: map[string]chan struct{}{}}
	b := newBrowser(g)
	ctx := context.Background()

	_, err := b.Create(ctx, domain.Entry{Name: "  ", LoggedDate: "01/01/2024"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	_, err = b.Create(ctx, domain.Entry{Name: "Tunic", LoggedDate: "2024-13-40"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = b.Create(ctx, domain.Entry{Name: "Tunic", LoggedDate: "01/01/2024", Rating: domain.Rating(4.1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = b.Update(ctx, 1, domain.Entry{Name: "Tunic", LoggedDate: "01/01/2024", Rating: domain.Rating(7)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, g.created, "invalid input never reaches the store")

	id, err := b.Create(ctx, domain.Entry{Name: " Tunic ", LoggedDate: "2024-03-16", CompletionDate: "2024-04-01", Rating: domain.Rating(4.5)})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	require.Len(t, g.created, 1)
	assert.Equal(t, "Tunic", g.created[0].Name)
	assert.Equal(t, "16/03/2024", g.created[0].LoggedDate)
	assert.Equal(t, "01/04/2024", g.created[0].CompletionDate)
	assert.Equal(t, testOwner, g.created[0].OwnerID)
}

func TestBrowser_BookRejectsCompletionDate(t *testing.T) {
	b := NewBrowser(zerolog.Nop(), store.NewService(zerolog.Nop(), &gatedBackend{gates: map[string]chan struct{}{}}), domain.KindBook, testOwner)

	_, err := b.Create(context.Background(), domain.Entry{Name: "Dune", LoggedDate: "01/01/2024", CompletionDate: "02/01/2024"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
