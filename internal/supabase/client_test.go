package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/httpx"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(zerolog.Nop(), srv.URL+"/", "anon-key", httpx.NewClient(zerolog.Nop(), httpx.WithDelay(0)))
}

func TestIlikeContains(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"hades", `ilike.*hades*`},
		{"Hades II", `ilike.*Hades II*`},
		{"100%_done", `ilike."*100\\%\\_done*"`},
		{"Q*bert", `ilike.*Q_bert*`},
		{"Ratchet, Clank", `ilike."*Ratchet, Clank*"`},
		{"Hades (2020)", `ilike."*Hades (2020)*"`},
		{`say "hi"`, `ilike."*say \"hi\"*"`},
		{`C:\games`, `ilike."*C:\\\\games*"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ilikeContains(tt.name))
		})
	}
}

func TestClient_SelectEscapesNameFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/v1/jogos", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `ilike."*Ratchet, Clank (2021)*"`, q.Get("nome"))
		assert.Equal(t, "eq.7", q.Get("CodigoUsuario"))
		assert.Len(t, q["nome"], 1)

		w.Header().Set("Content-Range", "*/0")
		w.Write([]byte(`[]`))
	})

	c := newTestClient(t, mux)
	rows, count, err := c.Select(context.Background(), domain.KindGame, domain.Query{OwnerID: 7, NameContains: "Ratchet, Clank (2021)"})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, rows)
}

func TestClient_Select(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/v1/jogos", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.7", q.Get("CodigoUsuario"))
		assert.Equal(t, "ilike.*hades*", q.Get("nome"))
		assert.Equal(t, "avaliacao.desc,data.desc", q.Get("order"))
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Range", "0-1/2")
		w.Write([]byte(`[
			{"id": 3, "CodigoUsuario": 7, "nome": "Hades", "data": "10/05/2023", "dataCompleto": null, "avaliacao": 4.5, "titleId": "1234"},
			{"id": 9, "CodigoUsuario": 7, "nome": "Hades II", "data": "01/02/2025", "dataCompleto": "03/04/2025", "avaliacao": null, "titleId": null}
		]`))
	})

	c := newTestClient(t, mux)
	c.SetAccessToken("user-token")

	rows, count, err := c.Select(context.Background(), domain.KindGame, domain.Query{
		OwnerID:      7,
		NameContains: "hades",
		Order: &domain.Order{Column: domain.ColumnRating, Direction: domain.Descending,
			Secondary: &domain.Order{Column: domain.ColumnLoggedDate, Direction: domain.Descending}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.Entry{ID: 3, OwnerID: 7, Name: "Hades", LoggedDate: "10/05/2023", Rating: domain.Rating(4.5), ExternalTitleID: "1234"}, rows[0])
	assert.Nil(t, rows[1].Rating)
	assert.True(t, rows[1].Completed())
}

// ownRow matches row 5 of owner 7, the only row the writes below may touch
func ownRow(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("id") == "eq.5" && q.Get("CodigoUsuario") == "eq.7"
}

func TestClient_Writes(t *testing.T) {
	var inserted, patched map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/v1/livros", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		var body []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		inserted = body[0]
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id": 41, "nome": "Dune"}]`))
	})
	mux.HandleFunc("PATCH /rest/v1/jogos", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &patched))
		if ownRow(r) {
			w.Write([]byte(`[{"id": 5}]`))
			return
		}
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("DELETE /rest/v1/jogos", func(w http.ResponseWriter, r *http.Request) {
		if ownRow(r) {
			w.Write([]byte(`[{"id": 5}]`))
			return
		}
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("GET /rest/v1/livros", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id.desc", r.URL.Query().Get("order"))
		w.Write([]byte(`[{"id": 41}]`))
	})

	ctx := context.Background()
	c := newTestClient(t, mux)

	id, err := c.Insert(ctx, domain.KindBook, domain.Entry{ID: 99, OwnerID: 7, Name: "Dune", LoggedDate: "01/01/2024"})
	require.NoError(t, err)
	assert.Equal(t, 41, id)
	assert.Equal(t, "Dune", inserted["nome"])
	assert.EqualValues(t, 7, inserted["CodigoUsuario"])
	assert.NotContains(t, inserted, "dataCompleto")
	assert.NotContains(t, inserted, "id")

	require.NoError(t, c.Update(ctx, domain.KindGame, 7, 5, domain.Entry{Name: "Tunic", Rating: domain.Rating(4)}))
	assert.Equal(t, 4.0, patched["avaliacao"])
	assert.Nil(t, patched["titleId"])
	assert.NotContains(t, patched, "CodigoUsuario")

	assert.ErrorIs(t, c.Update(ctx, domain.KindGame, 7, 6, domain.Entry{Name: "x"}), domain.ErrNotFound)
	assert.ErrorIs(t, c.Update(ctx, domain.KindGame, 8, 5, domain.Entry{Name: "x"}), domain.ErrNotFound)

	assert.ErrorIs(t, c.Delete(ctx, domain.KindGame, 8, 5), domain.ErrNotFound)
	require.NoError(t, c.Delete(ctx, domain.KindGame, 7, 5))
	assert.ErrorIs(t, c.Delete(ctx, domain.KindGame, 7, 6), domain.ErrNotFound)

	max, err := c.MaxID(ctx, domain.KindBook)
	require.NoError(t, err)
	assert.Equal(t, 41, max)
}

func TestClient_ErrorMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/v1/jogos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code": "PGRST301", "message": "JWT expired"}`))
	})

	c := newTestClient(t, mux)

	_, _, err := c.Select(context.Background(), domain.KindGame, domain.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT expired")

	var se *httpx.StatusError
	assert.ErrorAs(t, err, &se)
}

func TestClient_SignIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "hunter2" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "invalid_grant", "error_description": "Invalid login credentials"}`))
			return
		}
		w.Write([]byte(`{"access_token": "jwt-token", "token_type": "bearer", "user": {"id": "uuid", "email": "player@example.com"}}`))
	})
	mux.HandleFunc("GET /rest/v1/usuarios", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		assert.Equal(t, "eq.player@example.com", r.URL.Query().Get("Email"))
		w.Write([]byte(`[{"CodigoUsuario": 7, "Gamertag": "Player", "FotoURL": "https://img", "Nome": "Player One", "Email": "player@example.com", "Xuid": "2533"}]`))
	})

	c := newTestClient(t, mux)

	s, err := c.SignIn(context.Background(), " player@example.com ", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", s.AccessToken)
	assert.Equal(t, 7, s.User.ID)
	assert.Equal(t, "2533", s.User.HistoryKey())

	_, err = c.SignIn(context.Background(), "player@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestParseCount(t *testing.T) {
	n, ok := parseCount("0-24/3573")
	assert.True(t, ok)
	assert.Equal(t, 3573, n)

	n, ok = parseCount("*/0")
	assert.True(t, ok)
	assert.Zero(t, n)

	_, ok = parseCount("0-24/*")
	assert.False(t, ok)
}
