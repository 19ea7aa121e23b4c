// Package history keeps a cached copy of each user's play history and refreshes it in the background.
package history

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL          = 15 * time.Minute
	DefaultFetchTimeout = 30 * time.Second
)

type State string

const (
	StateAbsent     State = "absent"
	StateFresh      State = "fresh"
	StateStale      State = "stale"
	StateRefreshing State = "refreshing"
)

// Status describes the cached history of one user
type Status struct {
	State     State     `json:"state"`
	FetchedAt time.Time `json:"fetchedAt,omitempty"`
	LastError error     `json:"-"`
}

// Event is published once per completed refresh. Err is set when the fetch failed, Snapshot then
// holds whatever data was kept.
type Event struct {
	UserKey  string
	Snapshot *domain.HistorySnapshot
	Err      error
}

// MergedTitle is a history title cross-referenced with the logged entry of the same game
type MergedTitle struct {
	Title  domain.Title  `json:"title"`
	Entry  *domain.Entry `json:"entry,omitempty"`
	Logged bool          `json:"logged"`
}

type Service interface {
	GetSnapshot(ctx context.Context, userKey string) (*domain.HistorySnapshot, error)
	RefreshIfStale(ctx context.Context, userKey string) bool
	Read(ctx context.Context, userKey string) (*domain.HistorySnapshot, Status)
	Refresh(ctx context.Context, userKey string) (*domain.HistorySnapshot, error)
	Subscribe() (<-chan Event, func())
	Status(ctx context.Context, userKey string) Status
	Forget(ctx context.Context, userKey string) error
	DisplayImage(ctx context.Context, userKey, name, titleID string) (string, bool)
}

type userState struct {
	refreshing bool
	lastErr    error
}

type service struct {
	log          zerolog.Logger
	repo         domain.SnapshotRepo
	fetcher      domain.HistoryFetcher
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	states map[string]*userState
	// forgets counts Forget calls per user, a fetch started before the last one is not stored
	forgets map[string]uint64

	// persistMu orders snapshot writes against Forget
	persistMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

type Option func(*service)

func WithTTL(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(log zerolog.Logger, repo domain.SnapshotRepo, fetcher domain.HistoryFetcher, opts ...Option) Service {
	s := &service{
		log:          log.With().Str("module", "history").Logger(),
		repo:         repo,
		fetcher:      fetcher,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		states:       make(map[string]*userState),
		forgets:      make(map[string]uint64),
		subs:         make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSnapshot returns nil, nil when no snapshot was ever stored for userKey
func (s *service) GetSnapshot(ctx context.Context, userKey string) (*domain.HistorySnapshot, error) {
	snap, err := s.repo.GetSnapshot(ctx, userKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "could not load history of %s", userKey)
	}
	return snap, nil
}

func (s *service) state(userKey string) *userState {
	st, ok := s.states[userKey]
	if !ok {
		st = &userState{}
		s.states[userKey] = st
	}
	return st
}

func (s *service) classify(snap *domain.HistorySnapshot) State {
	switch {
	case snap == nil:
		return StateAbsent
	case s.now().Sub(snap.FetchedAt) > s.ttl:
		return StateStale
	default:
		return StateFresh
	}
}

func (s *service) snapshot(ctx context.Context, userKey string) *domain.HistorySnapshot {
	snap, err := s.GetSnapshot(ctx, userKey)
	if err != nil {
		s.log.Warn().Err(err).Str("user", userKey).Msg("treating unreadable history as absent")
		return nil
	}
	return snap
}

func (s *service) Status(ctx context.Context, userKey string) Status {
	snap := s.snapshot(ctx, userKey)

	s.mu.Lock()
	st := s.state(userKey)
	status := Status{State: s.classify(snap), LastError: st.lastErr}
	if st.refreshing {
		status.State = StateRefreshing
	}
	s.mu.Unlock()

	if snap != nil {
		status.FetchedAt = snap.FetchedAt
	}
	return status
}

// RefreshIfStale starts a background refresh when the history is absent or stale and none is
// running. The refresh outlives ctx.
func (s *service) RefreshIfStale(ctx context.Context, userKey string) bool {
	if userKey == "" || s.fetcher == nil {
		return false
	}

	snap := s.snapshot(ctx, userKey)

	s.mu.Lock()
	st := s.state(userKey)
	if st.refreshing || s.classify(snap) == StateFresh {
		s.mu.Unlock()
		return false
	}
	st.refreshing = true
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.refresh(bg, userKey); err != nil {
			s.log.Debug().Err(err).Str("user", userKey).Msg("background history refresh failed")
		}
	}()

	return true
}

// Read returns what is cached right now and kicks off a refresh when needed
func (s *service) Read(ctx context.Context, userKey string) (*domain.HistorySnapshot, Status) {
	snap := s.snapshot(ctx, userKey)
	s.RefreshIfStale(ctx, userKey)
	status := s.Status(ctx, userKey)
	return snap, status
}

// Refresh fetches the history now and waits for the result
func (s *service) Refresh(ctx context.Context, userKey string) (*domain.HistorySnapshot, error) {
	if userKey == "" {
		return nil, domain.NewValidationError("userKey", "no history identity linked to this account")
	}
	if s.fetcher == nil {
		return nil, errors.New("no history feed configured")
	}

	s.mu.Lock()
	s.state(userKey).refreshing = true
	s.mu.Unlock()

	return s.refresh(ctx, userKey)
}

func (s *service) refresh(ctx context.Context, userKey string) (*domain.HistorySnapshot, error) {
	v, err, _ := s.group.Do(userKey, func() (interface{}, error) {
		return s.fetch(ctx, userKey)
	})

	snap, _ := v.(*domain.HistorySnapshot)

	if errors.Is(err, domain.ErrSuperseded) {
		s.mu.Lock()
		if st, ok := s.states[userKey]; ok {
			st.refreshing = false
		}
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	st := s.state(userKey)
	st.refreshing = false
	st.lastErr = err
	s.mu.Unlock()

	if err != nil {
		// data and timestamp of the previous snapshot are kept
		s.publish(Event{UserKey: userKey, Snapshot: s.snapshot(ctx, userKey), Err: err})
		return nil, err
	}

	s.publish(Event{UserKey: userKey, Snapshot: snap})
	return snap, nil
}

func (s *service) fetch(ctx context.Context, userKey string) (*domain.HistorySnapshot, error) {
	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	s.mu.Lock()
	gen := s.forgets[userKey]
	s.mu.Unlock()

	start := s.now()
	titles, err := s.fetcher.FetchHistory(fctx, userKey)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch history")
	}

	snap := domain.HistorySnapshot{
		Version:   domain.SnapshotVersion,
		UserKey:   userKey,
		Titles:    titles,
		FetchedAt: s.now(),
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	forgotten := s.forgets[userKey] != gen
	s.mu.Unlock()
	if forgotten {
		s.log.Debug().Str("user", userKey).Msg("history was forgotten while fetching, dropping result")
		return nil, errors.Wrap(domain.ErrSuperseded, "history was forgotten during refresh")
	}

	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return nil, errors.Wrap(err, "could not store history")
	}

	s.log.Debug().Str("user", userKey).Int("titles", len(titles)).Dur("took", s.now().Sub(start)).Msg("history refreshed")

	return &snap, nil
}

// Subscribe returns a channel of completed refreshes. Slow subscribers miss events.
func (s *service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
}

func (s *service) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Warn().Str("user", ev.UserKey).Msg("history subscriber is not keeping up, dropping event")
		}
	}
}

// Forget drops the cached history of userKey, used on logout. A refresh running at that moment
// completes without storing its result.
func (s *service) Forget(ctx context.Context, userKey string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	delete(s.states, userKey)
	s.forgets[userKey]++
	s.mu.Unlock()

	return errors.Wrap(s.repo.DeleteSnapshot(ctx, userKey), "could not forget history")
}

// DisplayImage looks for a history title with the same name, or with titleID when no name matches
func (s *service) DisplayImage(ctx context.Context, userKey, name, titleID string) (string, bool) {
	snap := s.snapshot(ctx, userKey)
	if snap == nil {
		return "", false
	}

	t, ok := findTitle(snap.Titles, name, titleID)
	if !ok || t.DisplayImage == "" {
		return "", false
	}
	return t.DisplayImage, true
}

func findTitle(titles []domain.Title, name, titleID string) (domain.Title, bool) {
	for _, t := range titles {
		if strings.EqualFold(strings.TrimSpace(t.Name), strings.TrimSpace(name)) {
			return t, true
		}
	}
	if titleID != "" {
		for _, t := range titles {
			if t.ExternalID == titleID {
				return t, true
			}
		}
	}
	return domain.Title{}, false
}

// Merge lists the snapshot titles, most recently played first, each linked to the matching
// entry if one is logged. Names are compared case-insensitively, the external title id is used
// when no name matches. Entries are copied.
func Merge(entries []domain.Entry, snap *domain.HistorySnapshot) []MergedTitle {
	if snap == nil {
		return nil
	}

	byName := make(map[string]int, len(entries))
	byTitleID := make(map[string]int, len(entries))
	for i, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Name))
		if _, ok := byName[key]; !ok {
			byName[key] = i
		}
		if e.ExternalTitleID != "" {
			if _, ok := byTitleID[e.ExternalTitleID]; !ok {
				byTitleID[e.ExternalTitleID] = i
			}
		}
	}

	out := make([]MergedTitle, 0, len(snap.Titles))
	for _, t := range snap.Titles {
		m := MergedTitle{Title: t}

		i, ok := byName[strings.ToLower(strings.TrimSpace(t.Name))]
		if !ok && t.ExternalID != "" {
			i, ok = byTitleID[t.ExternalID]
		}
		if ok {
			e := entries[i]
			m.Entry = &e
			m.Logged = true
		}

		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Title.LastPlayed.After(out[j].Title.LastPlayed)
	})

	return out
}

// Recent returns at most n of the merged titles
func Recent(merged []MergedTitle, n int) []MergedTitle {
	if n >= 0 && len(merged) > n {
		return merged[:n]
	}
	return merged
}
