package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/varoOP/backlogdb/internal/config"
	"github.com/varoOP/backlogdb/internal/cover"
	"github.com/varoOP/backlogdb/internal/database"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/history"
	"github.com/varoOP/backlogdb/internal/httpx"
	"github.com/varoOP/backlogdb/internal/library"
	"github.com/varoOP/backlogdb/internal/logger"
	"github.com/varoOP/backlogdb/internal/notification"
	"github.com/varoOP/backlogdb/internal/repository"
	"github.com/varoOP/backlogdb/internal/search"
	"github.com/varoOP/backlogdb/internal/server"
	"github.com/varoOP/backlogdb/internal/sorting"
	"github.com/varoOP/backlogdb/internal/store"
	"github.com/varoOP/backlogdb/internal/supabase"
	"github.com/varoOP/backlogdb/internal/xbox"
)

// ErrNotSignedIn is returned by commands that need a session
var ErrNotSignedIn = errors.New("not signed in, run 'backlogdb login' first")

// App represents the main application with all dependencies initialized
type App struct {
	log    zerolog.Logger
	config *domain.Config
	db     *database.DB
	http   *httpx.Client

	remote   *supabase.Client
	users    *database.UserRepo
	auth     domain.Authenticator
	sessions domain.SessionRepo
	session  *domain.Session

	images   domain.ImageCacheRepo
	snaps    domain.SnapshotRepo
	store    store.Service
	library  domain.LibraryRepository
	notifier domain.NotificationService

	history  history.Service
	resolver *cover.Resolver
}

// NewApp loads the configuration and creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return New(logger.New(cfg.LogLevel, cfg.LogPath), cfg)
}

// New creates a new application instance with all dependencies initialized
func New(log zerolog.Logger, cfg *domain.Config) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		log:      log,
		config:   cfg,
		db:       db,
		http:     httpx.NewClient(log),
		images:   database.NewImageCacheRepo(log, db),
		snaps:    database.NewSnapshotRepo(log, db),
		sessions: database.NewSessionRepo(log, db),
		library:  repository.NewFileRepository(log, afero.NewOsFs()),
	}
	a.notifier = notification.NewService(log, cfg.DiscordWebhookURL, a.http)

	var backend domain.Backend
	switch cfg.Backend {
	case domain.BackendSupabase:
		a.remote = supabase.NewClient(log, cfg.SupabaseURL, cfg.SupabaseKey, a.http)
		a.auth = a.remote
		backend = a.remote
	default:
		a.users = database.NewUserRepo(log, db)
		a.auth = a.users
		backend = database.NewEntryRepo(log, db)
	}

	a.store = store.NewService(log, backend, sorting.WithLocale(sorting.ParseLocale(cfg.Locale)))

	session, err := a.sessions.GetSession(context.Background())
	switch {
	case err == nil:
		a.useSession(session)
	case !errors.Is(err, domain.ErrNotFound):
		log.Warn().Err(err).Msg("could not restore session")
	}

	a.wireClients()

	return a, nil
}

func (a *App) useSession(s *domain.Session) {
	a.session = s
	if a.remote != nil {
		a.remote.SetAccessToken(s.AccessToken)
	}
}

func (a *App) token() string {
	if a.session == nil || a.config.Backend != domain.BackendSupabase {
		return ""
	}
	return a.session.AccessToken
}

// wireClients builds the search, history and cover services, which depend on the session token
func (a *App) wireClients() {
	cfg := a.config

	var fetcher domain.HistoryFetcher
	switch cfg.HistoryMode {
	case domain.HistoryModeProxy:
		if cfg.ProxyURL != "" {
			fetcher = xbox.NewProxyClient(a.log, a.http, cfg.ProxyURL, a.token())
		}
	case domain.HistoryModeOpenXBL:
		fetcher = xbox.NewClient(a.log, a.http, cfg.OpenXBLKey)
	}
	a.history = history.NewService(a.log, a.snaps, fetcher, history.WithTTL(cfg.HistoryTTL))

	opts := []cover.Option{
		cover.WithLocalImages(cover.NewLocalImages(afero.NewOsFs(), cfg.ImagesDir, "/images")),
		cover.WithHistory(a.history),
		cover.WithPlaceholder(cfg.PlaceholderImage),
		cover.WithSearchTimeout(cfg.SearchTimeout),
		cover.WithParallelism(cfg.ResolveParallelism),
	}
	if p := a.clientSearch(); p != nil {
		opts = append(opts, cover.WithProvider(p, cover.NewHTTPFetcher(a.http)))
	}
	a.resolver = cover.NewResolver(a.log, a.images, opts...)
}

// clientSearch is the provider used by this process to find covers, nil when searching is off
func (a *App) clientSearch() domain.SearchProvider {
	cfg := a.config

	var providers []domain.SearchProvider
	switch cfg.SearchMode {
	case domain.SearchModeProxy:
		if cfg.ProxyURL != "" {
			providers = append(providers, search.NewProxyProvider(a.log, a.http, cfg.ProxyURL, a.token()))
		}
	case domain.SearchModeGoogle:
		providers = append(providers, search.NewGoogleProvider(a.log, a.http, cfg.GoogleAPIKey, cfg.GoogleCSEID))
	case domain.SearchModeNone:
		return nil
	}
	if cfg.PageTemplate != "" {
		providers = append(providers, search.NewPageProvider(a.log, cfg.PageTemplate))
	}

	if len(providers) == 0 {
		return nil
	}
	return search.NewChain(a.log, providers...)
}

func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) Config() *domain.Config {
	return a.config
}

func (a *App) Logger() zerolog.Logger {
	return a.log
}

// Session returns the active session or ErrNotSignedIn
func (a *App) Session() (*domain.Session, error) {
	if a.session == nil {
		return nil, ErrNotSignedIn
	}
	return a.session, nil
}

// Login signs in, persists the session and re-creates the clients with the new token
func (a *App) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	s, err := a.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in failed: %w", err)
	}

	if err := a.sessions.SaveSession(ctx, *s); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	a.useSession(s)
	a.wireClients()
	a.log.Info().Str("email", s.User.Email).Msg("signed in")

	return s, nil
}

// Register creates a local account, only available with the sqlite backend
func (a *App) Register(ctx context.Context, u domain.User, password string) (int, error) {
	if a.users == nil {
		return 0, fmt.Errorf("accounts of the %s backend are managed by the backend", a.config.Backend)
	}
	id, err := a.users.CreateUser(ctx, u, password)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

// Logout drops the session and the cached history of the user
func (a *App) Logout(ctx context.Context) error {
	if a.session != nil {
		if key := a.session.User.HistoryKey(); key != "" {
			if err := a.history.Forget(ctx, key); err != nil {
				a.log.Warn().Err(err).Msg("could not forget history")
			}
		}
	}

	if err := a.sessions.DeleteSession(ctx); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	a.session = nil
	if a.remote != nil {
		a.remote.SetAccessToken("")
	}
	a.wireClients()
	return nil
}

// Browser opens the list and detail views of kind for the signed in user
func (a *App) Browser(kind domain.Kind) (*library.Browser, error) {
	s, err := a.Session()
	if err != nil {
		return nil, err
	}
	return library.NewBrowser(a.log, a.store, kind, s.User.ID), nil
}

func (a *App) History() history.Service {
	return a.history
}

func (a *App) Images() domain.ImageCacheRepo {
	return a.images
}

func (a *App) Resolver() *cover.Resolver {
	return a.resolver
}

// CoverRequest describes the cover lookup of e
func (a *App) CoverRequest(kind domain.Kind, e domain.Entry) cover.Request {
	req := cover.Request{Name: e.Name, Kind: kind}
	if kind == domain.KindGame {
		req.TitleID = e.ExternalTitleID
		if a.session != nil {
			req.UserKey = a.session.User.HistoryKey()
		}
	}
	return req
}

// Entries returns every entry of the signed in user, sorted
func (a *App) Entries(ctx context.Context, kind domain.Kind, order domain.OrderMode, dir domain.Direction) ([]domain.Entry, error) {
	s, err := a.Session()
	if err != nil {
		return nil, err
	}

	res, err := a.store.List(ctx, kind, domain.ListParams{OwnerID: s.User.ID, Order: order, Direction: dir})
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// Export writes every entry of kind to path
func (a *App) Export(ctx context.Context, kind domain.Kind, path string) (int, error) {
	entries, err := a.Entries(ctx, kind, domain.OrderChronological, domain.Ascending)
	if err != nil {
		return 0, err
	}

	if err := a.library.Store(ctx, path, &domain.Library{Kind: kind, Entries: entries}); err != nil {
		return 0, fmt.Errorf("export failed: %w", err)
	}
	return len(entries), nil
}

// Import creates every entry of the file at path for the signed in user. Ids in the file
// are ignored. It stops at the first invalid entry.
func (a *App) Import(ctx context.Context, kind domain.Kind, path string) (int, error) {
	s, err := a.Session()
	if err != nil {
		return 0, err
	}

	lib, err := a.library.Get(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("import failed: %w", err)
	}
	if lib.Kind != "" && lib.Kind != kind {
		return 0, fmt.Errorf("%s holds %s, not %s", path, lib.Kind, kind)
	}

	b := library.NewBrowser(a.log, a.store, kind, s.User.ID)
	for i, e := range lib.Entries {
		if _, err := b.Create(ctx, e); err != nil {
			return i, fmt.Errorf("entry %d (%s): %w", i+1, e.Name, err)
		}
	}
	return len(lib.Entries), nil
}

// Notify sends the statistics of kind to the configured webhook
func (a *App) Notify(ctx context.Context, kind domain.Kind, summary domain.Summary) error {
	if a.config.DiscordWebhookURL == "" {
		return fmt.Errorf("discord_webhook_url is not configured")
	}
	if err := a.notifier.SendSummary(ctx, kind, summary); err != nil {
		return fmt.Errorf("failed to send summary: %w", err)
	}
	return nil
}

// NotifyError reports err to the notifier, failures are only logged
func (a *App) NotifyError(ctx context.Context, err error) {
	if notifyErr := a.notifier.SendError(ctx, err); notifyErr != nil {
		a.log.Warn().Err(notifyErr).Msg("Failed to send error notification")
	}
}

// Server builds the proxy server. It searches with the google credentials and the page
// template of the configuration, and fetches history from OpenXBL.
func (a *App) Server() (*server.Server, error) {
	cfg := a.config
	hc := httpx.NewClient(a.log, httpx.WithHTTPClient(&http.Client{Timeout: 20 * time.Second}))

	var providers []domain.SearchProvider
	if cfg.GoogleAPIKey != "" && cfg.GoogleCSEID != "" {
		providers = append(providers, search.NewGoogleProvider(a.log, hc, cfg.GoogleAPIKey, cfg.GoogleCSEID))
	}
	if cfg.PageTemplate != "" {
		providers = append(providers, search.NewPageProvider(a.log, cfg.PageTemplate))
	}

	var searcher domain.SearchProvider
	if len(providers) > 0 {
		searcher = search.NewChain(a.log, providers...)
	}

	var fetcher domain.HistoryFetcher
	if cfg.OpenXBLKey != "" {
		fetcher = xbox.NewClient(a.log, hc, cfg.OpenXBLKey)
	}

	if searcher == nil && fetcher == nil {
		return nil, fmt.Errorf("nothing to serve: configure google_api_key/google_cse_id, page_template or openxbl_key")
	}

	return server.NewServer(a.log, searcher, fetcher, server.WithJWTSecret(cfg.JWTSecret)), nil
}
