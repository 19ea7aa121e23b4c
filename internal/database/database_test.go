package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/backlogdb/internal/domain"
)

func setupDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "backlogdb.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestNewDB_Migrates(t *testing.T) {
	db := setupDB(t)

	v, err := db.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
	assert.NoError(t, db.Migrate())
	assert.NoError(t, db.Ping())
}

func TestEntryRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepo(zerolog.Nop(), setupDB(t))

	max, err := repo.MaxID(ctx, domain.KindGame)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	id, err := repo.Insert(ctx, domain.KindGame, domain.Entry{
		ID:         99,
		OwnerID:    7,
		Name:       "Hades",
		LoggedDate: "05/03/2021",
		Rating:     domain.Rating(4.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, id, "ids are generated by the database")

	_, err = repo.Insert(ctx, domain.KindGame, domain.Entry{OwnerID: 7, Name: "Celeste", LoggedDate: "01/02/2023"})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, domain.KindGame, domain.Entry{OwnerID: 8, Name: "Hades II", LoggedDate: "01/02/2024"})
	require.NoError(t, err)

	rows, count, err := repo.Select(ctx, domain.KindGame, domain.Query{OwnerID: 7})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, rows, 2)

	rows, _, err = repo.Select(ctx, domain.KindGame, domain.Query{OwnerID: 7, NameContains: "hAd"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hades", rows[0].Name)
	require.NotNil(t, rows[0].Rating)
	assert.Equal(t, 4.5, *rows[0].Rating)

	rows, _, err = repo.Select(ctx, domain.KindGame, domain.Query{ID: 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Rating)

	err = repo.Update(ctx, domain.KindGame, 7, 2, domain.Entry{Name: "Celeste", LoggedDate: "01/02/2023", CompletionDate: "10/02/2023", Rating: domain.Rating(5)})
	require.NoError(t, err)

	rows, _, err = repo.Select(ctx, domain.KindGame, domain.Query{ID: 2})
	require.NoError(t, err)
	assert.Equal(t, "10/02/2023", rows[0].CompletionDate)
	assert.Equal(t, 5.0, *rows[0].Rating)

	assert.ErrorIs(t, repo.Update(ctx, domain.KindGame, 7, 42, domain.Entry{Name: "x"}), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, domain.KindGame, 8, 2, domain.Entry{Name: "x"}), domain.ErrNotFound, "row of another owner")
	assert.ErrorIs(t, repo.Delete(ctx, domain.KindGame, 7, 3), domain.ErrNotFound, "row of another owner")

	require.NoError(t, repo.Delete(ctx, domain.KindGame, 8, 3))
	assert.ErrorIs(t, repo.Delete(ctx, domain.KindGame, 8, 3), domain.ErrNotFound)

	max, err = repo.MaxID(ctx, domain.KindGame)
	require.NoError(t, err)
	assert.Equal(t, 2, max)
}

func TestEntryRepo_SelectOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepo(zerolog.Nop(), setupDB(t))

	for _, name := range []string{"b", "a", "c"} {
		_, err := repo.Insert(ctx, domain.KindBook, domain.Entry{OwnerID: 1, Name: name, LoggedDate: "01/01/2020"})
		require.NoError(t, err)
	}

	rows, count, err := repo.Select(ctx, domain.KindBook, domain.Query{
		Order: &domain.Order{Column: domain.ColumnName, Direction: domain.Ascending,
			Secondary: &domain.Order{Column: domain.ColumnID, Direction: domain.Descending}},
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Name)
	assert.Equal(t, "b", rows[1].Name)

	_, _, err = repo.Select(ctx, domain.KindBook, domain.Query{Order: &domain.Order{Column: "nope"}})
	assert.Error(t, err)

	_, _, err = repo.Select(ctx, domain.Kind("movies"), domain.Query{})
	assert.Error(t, err)
}

func TestEntryRepo_NameFilterEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepo(zerolog.Nop(), setupDB(t))

	for _, name := range []string{"100% Orange Juice", "1000xResist"} {
		_, err := repo.Insert(ctx, domain.KindGame, domain.Entry{OwnerID: 1, Name: name})
		require.NoError(t, err)
	}

	rows, _, err := repo.Select(ctx, domain.KindGame, domain.Query{NameContains: "100%"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "100% Orange Juice", rows[0].Name)
}

func TestImageCacheRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewImageCacheRepo(zerolog.Nop(), setupDB(t))

	_, err := repo.GetImage(ctx, "Hades")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.PutImage(ctx, domain.CachedImage{Name: "Hades", Kind: domain.KindGame, Source: domain.SourceProvider, Value: "data:image/jpeg;base64,AAA"}))
	require.NoError(t, repo.PutImage(ctx, domain.CachedImage{Name: "Hades", Kind: domain.KindGame, Source: domain.SourceHistory, Value: "https://img/hades.png"}))
	require.NoError(t, repo.PutImage(ctx, domain.CachedImage{Name: "Celeste: Farewell", Kind: domain.KindGame, Source: domain.SourceProvider, Value: "x"}))

	img, err := repo.GetImage(ctx, "Hades")
	require.NoError(t, err)
	assert.Equal(t, domain.ImageRef{Source: domain.SourceHistory, Value: "https://img/hades.png"}, img.Ref())
	assert.False(t, img.CachedAt.IsZero())

	_, err = repo.GetImage(ctx, "hades")
	assert.ErrorIs(t, err, domain.ErrNotFound, "keys are exact names")

	count, err := repo.CountImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.DeleteImage(ctx, "Hades"))
	assert.ErrorIs(t, repo.DeleteImage(ctx, "Hades"), domain.ErrNotFound)

	n, err := repo.PurgeImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSnapshotRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepo(zerolog.Nop(), setupDB(t))

	_, err := repo.GetSnapshot(ctx, "xuid-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap := domain.HistorySnapshot{
		UserKey:   "xuid-1",
		FetchedAt: fetched,
		Titles: []domain.Title{
			{Name: "Hades", ExternalID: "1234", LastPlayed: fetched.Add(-time.Hour), DisplayImage: "https://img/hades.png"},
		},
	}
	require.NoError(t, repo.SaveSnapshot(ctx, snap))

	got, err := repo.GetSnapshot(ctx, "xuid-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SnapshotVersion, got.Version)
	assert.True(t, got.FetchedAt.Equal(fetched))
	require.Len(t, got.Titles, 1)
	assert.Equal(t, "1234", got.Titles[0].ExternalID)

	require.NoError(t, repo.DeleteSnapshot(ctx, "xuid-1"))
	require.NoError(t, repo.DeleteSnapshot(ctx, "xuid-1"))
	_, err = repo.GetSnapshot(ctx, "xuid-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo(zerolog.Nop(), setupDB(t))

	_, err := repo.GetSession(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.SaveSession(ctx, domain.Session{AccessToken: "a", User: domain.User{ID: 1, Email: "a@b.c"}}))
	require.NoError(t, repo.SaveSession(ctx, domain.Session{AccessToken: "b", User: domain.User{ID: 2, Email: "d@e.f"}}))

	s, err := repo.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", s.AccessToken)
	assert.Equal(t, 2, s.User.ID)

	require.NoError(t, repo.DeleteSession(ctx))
	_, err = repo.GetSession(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_SignIn(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(zerolog.Nop(), setupDB(t))

	id, err := repo.CreateUser(ctx, domain.User{Email: "player@example.com", Name: "Player", Xuid: "2533"}, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = repo.CreateUser(ctx, domain.User{Email: "PLAYER@example.com"}, "other")
	assert.Error(t, err, "emails are unique regardless of case")

	_, err = repo.CreateUser(ctx, domain.User{Email: ""}, "x")
	assert.ErrorIs(t, err, domain.ErrValidation)

	s, err := repo.SignIn(ctx, "Player@Example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, 1, s.User.ID)
	assert.Equal(t, "2533", s.User.HistoryKey())
	assert.NotEmpty(t, s.AccessToken)

	_, err = repo.SignIn(ctx, "player@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = repo.SignIn(ctx, "nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
