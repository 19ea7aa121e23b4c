package main

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/backlogdb/internal/app"
	"github.com/varoOP/backlogdb/internal/domain"
)

func TestParseID(t *testing.T) {
	id, err := parseID(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestRatingText(t *testing.T) {
	assert.Equal(t, "-", ratingText(domain.Entry{}))
	assert.Equal(t, "4.75", ratingText(domain.Entry{Rating: domain.Rating(4.75)}))
	assert.Equal(t, "0", ratingText(domain.Entry{Rating: domain.Rating(0)}))
}

func TestReadLine(t *testing.T) {
	line, err := readLine(strings.NewReader("hunter22\r\nrest"))
	require.NoError(t, err)
	assert.Equal(t, "hunter22", line)

	line, err = readLine(strings.NewReader("no newline"))
	require.NoError(t, err)
	assert.Equal(t, "no newline", line)
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	printEntries(&buf, domain.KindGame, []domain.Entry{
		{ID: 1, Name: "Hades", LoggedDate: "10/02/2023", Rating: domain.Rating(5), CompletionDate: "01/05/2023"},
		{ID: 2, Name: "Celeste", LoggedDate: "20/03/2023"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "100%")
	assert.Contains(t, lines[1], "01/05/2023")
	assert.Contains(t, lines[2], "Celeste")

	buf.Reset()
	printEntries(&buf, domain.KindBook, []domain.Entry{{ID: 3, Name: "Dune", LoggedDate: "01/01/2024"}})
	assert.NotContains(t, buf.String(), "100%")
}

func TestPrintEntry(t *testing.T) {
	a := newSignedInApp(t)
	ctx := context.Background()

	b, err := a.Browser(domain.KindGame)
	require.NoError(t, err)
	id, err := b.Create(ctx, domain.Entry{Name: "Hades", LoggedDate: "10/05/2023", Rating: domain.Rating(4.5)})
	require.NoError(t, err)

	e, err := b.Get(ctx, id)
	require.NoError(t, err)

	var buf bytes.Buffer
	printEntry(&buf, domain.KindGame, e)
	assert.Contains(t, buf.String(), "Name:        Hades\n")
	assert.Contains(t, buf.String(), "Completed:   -\n")
	assert.Contains(t, buf.String(), "Rating:      4.5\n")

	buf.Reset()
	printEntry(&buf, domain.KindBook, &domain.Entry{ID: 2, Name: "Dune", LoggedDate: "01/01/2024"})
	assert.NotContains(t, buf.String(), "Completed")
	assert.Contains(t, buf.String(), "Rating:      -\n")
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{
		"login", "logout", "whoami", "register", "list", "show", "add", "edit", "delete",
		"stats", "history", "cover", "cache", "export", "import", "serve", "version",
	} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func newSignedInApp(t *testing.T) *app.App {
	t.Helper()

	dir := t.TempDir()
	a, err := app.New(zerolog.Nop(), &domain.Config{
		Backend:            domain.BackendSQLite,
		DatabasePath:       filepath.Join(dir, "backlogdb.db"),
		Locale:             "pt-BR",
		PageSize:           10,
		ImagesDir:          filepath.Join(dir, "images"),
		PlaceholderImage:   "/images/placeholder.jpg",
		SearchMode:         domain.SearchModeNone,
		SearchTimeout:      time.Second,
		ResolveParallelism: 2,
		HistoryMode:        domain.HistoryModeNone,
		HistoryTTL:         15 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ctx := context.Background()
	_, err = a.Register(ctx, domain.User{Email: "ana@example.com"}, "pw")
	require.NoError(t, err)
	_, err = a.Login(ctx, "ana@example.com", "pw")
	require.NoError(t, err)

	return a
}

func TestResolveCovers(t *testing.T) {
	a := newSignedInApp(t)
	ctx := context.Background()

	games := filepath.Join(a.Config().ImagesDir, "games")
	require.NoError(t, os.MkdirAll(games, 0755))
	f, err := os.Create(filepath.Join(games, "Hades.jpg"))
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 6)), nil))
	require.NoError(t, f.Close())

	entries := []domain.Entry{
		{ID: 1, Name: "Hades", LoggedDate: "10/02/2023"},
		{ID: 2, Name: "Celeste", LoggedDate: "20/03/2023"},
		{ID: 3, Name: "Hades", LoggedDate: "01/01/2024"},
	}

	covers := resolveCovers(ctx, a, domain.KindGame, entries)
	require.Len(t, covers, 2, "rows sharing a name are resolved once")
	assert.Equal(t, domain.ImageRef{Source: domain.SourceLocal, Value: "/images/games/Hades.jpg"}, covers["Hades"])
	assert.True(t, covers["Celeste"].IsPlaceholder())

	var buf bytes.Buffer
	printEntriesWithCovers(&buf, domain.KindGame, entries, covers)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "COVER")
	assert.True(t, strings.HasSuffix(lines[1], "local"))
	assert.True(t, strings.HasSuffix(lines[2], "placeholder"))
}

func TestListCoversFlag(t *testing.T) {
	flag := listCmd.Flags().Lookup("covers")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
