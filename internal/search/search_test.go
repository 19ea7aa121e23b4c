package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/httpx"
)

func testHTTP() *httpx.Client {
	return httpx.NewClient(zerolog.Nop(), httpx.WithDelay(0))
}

func TestGoogleProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Hades GAME COVER ART", q.Get("q"))
		assert.Equal(t, "image", q.Get("searchType"))
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "cx", q.Get("cx"))
		w.Write([]byte(`{"items": [
			{"link": "https://img/a.jpg", "image": {"width": 600, "height": 900}},
			{"link": "", "image": {"width": 1, "height": 1}},
			{"link": "https://img/b.png", "image": {"width": 1200, "height": 600}}
		]}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider(zerolog.Nop(), testHTTP(), "k", "cx", WithGoogleEndpoint(srv.URL))

	got, err := p.Search(context.Background(), "Hades GAME COVER ART")
	require.NoError(t, err)
	assert.Equal(t, []domain.Candidate{
		{URL: "https://img/a.jpg", Width: 600, Height: 900},
		{URL: "https://img/b.png", Width: 1200, Height: 600},
	}, got)

	_, err = NewGoogleProvider(zerolog.Nop(), testHTTP(), "", "").Search(context.Background(), "x")
	assert.Error(t, err)
}

func TestProxyProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cover-proxy", r.URL.Path)
		assert.Equal(t, "Dune BOOK COVER ART", r.URL.Query().Get("query"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"url": "https://img/dune.jpg", "width": 400, "height": 600}]`))
	}))
	defer srv.Close()

	p := NewProxyProvider(zerolog.Nop(), testHTTP(), srv.URL+"/", "tok")

	got, err := p.Search(context.Background(), "Dune BOOK COVER ART")
	require.NoError(t, err)
	assert.Equal(t, []domain.Candidate{{URL: "https://img/dune.jpg", Width: 400, Height: 600}}, got)
}

func TestPageProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games/pokemon-legends-arceus", r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head>
			<meta property="og:image" content="/covers/arceus.jpg">
			<meta property="og:image:width" content="600">
			<meta property="og:image:height" content="900">
		</head><body>
			<img src="/icons/logo.png" width="32" height="32">
			<img src="data:image/gif;base64,R0lGOD">
			<img src="https://cdn.example.com/shot.jpg" width="1280" height="720">
			<img src="/covers/arceus.jpg">
		</body></html>`))
	}))
	defer srv.Close()

	p := NewPageProvider(zerolog.Nop(), srv.URL+"/games/{slug}")

	got, err := p.Search(context.Background(), "Pokémon Legends: Arceus")
	require.NoError(t, err)
	assert.Equal(t, []domain.Candidate{
		{URL: srv.URL + "/covers/arceus.jpg", Width: 600, Height: 900},
		{URL: "https://cdn.example.com/shot.jpg", Width: 1280, Height: 720},
	}, got)
}

func TestPageProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewPageProvider(zerolog.Nop(), srv.URL+"/search?q={query}")

	_, err := p.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "pokemon-legends-arceus", Slug("Pokémon Legends: Arceus"))
	assert.Equal(t, "o-senhor-dos-aneis", Slug("  O Senhor dos Anéis!  "))
	assert.Equal(t, "", Slug("???"))
}

type fakeProvider struct {
	candidates []domain.Candidate
	err        error
	calls      int
}

func (f *fakeProvider) Search(context.Context, string) ([]domain.Candidate, error) {
	f.calls++
	return f.candidates, f.err
}

func TestChain(t *testing.T) {
	failing := &fakeProvider{err: errors.New("boom")}
	empty := &fakeProvider{}
	hit := &fakeProvider{candidates: []domain.Candidate{{URL: "u"}}}
	after := &fakeProvider{candidates: []domain.Candidate{{URL: "v"}}}

	got, err := NewChain(zerolog.Nop(), failing, empty, hit, after).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "u", got[0].URL)
	assert.Zero(t, after.calls)

	got, err = NewChain(zerolog.Nop(), failing, empty).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NewChain(zerolog.Nop(), failing, &fakeProvider{err: errors.New("down")}).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "down")
}
