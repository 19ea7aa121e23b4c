// Package cover resolves a displayable cover image for an entry name.
package cover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/varoOP/backlogdb/internal/domain"
)

const (
	DefaultPlaceholder   = "/images/placeholder.jpg"
	DefaultSearchTimeout = 10 * time.Second
	DefaultParallelism   = 4
)

// Request identifies the entry a cover is wanted for
type Request struct {
	Name    string
	Kind    domain.Kind
	TitleID string
	UserKey string
}

// HistoryImages finds a display image in the play history of a user
type HistoryImages interface {
	DisplayImage(ctx context.Context, userKey, name, titleID string) (string, bool)
}

type Resolver struct {
	log         zerolog.Logger
	cache       domain.ImageCacheRepo
	local       *LocalImages
	history     HistoryImages
	provider    domain.SearchProvider
	fetcher     Fetcher
	placeholder string
	timeout     time.Duration
	parallelism int
}

type Option func(*Resolver)

func WithLocalImages(l *LocalImages) Option {
	return func(r *Resolver) { r.local = l }
}

func WithHistory(h HistoryImages) Option {
	return func(r *Resolver) { r.history = h }
}

func WithProvider(p domain.SearchProvider, f Fetcher) Option {
	return func(r *Resolver) {
		r.provider = p
		r.fetcher = f
	}
}

func WithPlaceholder(ref string) Option {
	return func(r *Resolver) {
		if ref != "" {
			r.placeholder = ref
		}
	}
}

func WithSearchTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithParallelism(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

func NewResolver(log zerolog.Logger, cache domain.ImageCacheRepo, opts ...Option) *Resolver {
	r := &Resolver{
		log:         log.With().Str("module", "cover").Logger(),
		cache:       cache,
		placeholder: DefaultPlaceholder,
		timeout:     DefaultSearchTimeout,
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Placeholder is the reference returned when nothing else resolves
func (r *Resolver) Placeholder() domain.ImageRef {
	return domain.ImageRef{Source: domain.SourcePlaceholder, Value: r.placeholder}
}

// Query is the search text sent to providers for an entry
func Query(name string, kind domain.Kind) string {
	return fmt.Sprintf("%s %s COVER ART", name, kind.Keyword())
}

// Resolve never fails. It tries, in order, the static file, the cache, the play history and
// the search provider, and falls back to the placeholder.
func (r *Resolver) Resolve(ctx context.Context, req Request) domain.ImageRef {
	log := r.log.With().Str("name", req.Name).Str("kind", string(req.Kind)).Logger()

	if r.local != nil {
		if ref, ok := r.local.Lookup(req.Kind, req.Name); ok {
			return domain.ImageRef{Source: domain.SourceLocal, Value: ref}
		}
	}

	if r.cache != nil {
		img, err := r.cache.GetImage(ctx, req.Name)
		switch {
		case err == nil:
			return img.Ref()
		case !errors.Is(err, domain.ErrNotFound):
			log.Warn().Err(err).Msg("image cache lookup failed")
		}
	}

	if r.history != nil && req.UserKey != "" {
		if u, ok := r.history.DisplayImage(ctx, req.UserKey, req.Name, req.TitleID); ok {
			ref := domain.ImageRef{Source: domain.SourceHistory, Value: u}
			r.store(ctx, req, ref)
			return ref
		}
	}

	if r.provider != nil && r.fetcher != nil {
		ref, err := r.search(ctx, req)
		if err == nil {
			r.store(ctx, req, ref)
			return ref
		}
		log.Debug().Err(err).Msg("cover search failed, using placeholder")
	}

	return r.Placeholder()
}

func (r *Resolver) search(ctx context.Context, req Request) (domain.ImageRef, error) {
	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	candidates, err := r.provider.Search(sctx, Query(req.Name, req.Kind))
	if err != nil {
		return domain.ImageRef{}, errors.Wrap(err, "search")
	}
	if len(candidates) == 0 {
		return domain.ImageRef{}, errors.New("no candidates")
	}

	for _, c := range OrderCandidates(candidates) {
		data, err := r.fetcher.Fetch(ctx, c.URL)
		if err != nil {
			r.log.Trace().Err(err).Str("url", c.URL).Msg("candidate rejected")
			continue
		}
		return domain.ImageRef{Source: domain.SourceProvider, Value: data}, nil
	}

	return domain.ImageRef{}, errors.Errorf("all %d candidates failed", len(candidates))
}

func (r *Resolver) store(ctx context.Context, req Request, ref domain.ImageRef) {
	if r.cache == nil {
		return
	}

	err := r.cache.PutImage(ctx, domain.CachedImage{
		Name:     req.Name,
		Kind:     req.Kind,
		Source:   ref.Source,
		Value:    ref.Value,
		CachedAt: time.Now(),
	})
	if err != nil {
		r.log.Warn().Err(err).Str("name", req.Name).Msg("could not cache cover")
	}
}

func group(c domain.Candidate) int {
	switch {
	case c.Height > c.Width:
		return 0
	case c.Width > 0 && float64(c.Height)/float64(c.Width) >= 0.8:
		return 1
	default:
		return 2
	}
}

// OrderCandidates puts portrait candidates first, then near-square ones (height/width in
// [0.8, 1.0]), then the rest. Order inside each group is kept.
func OrderCandidates(candidates []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(candidates))
	for g := 0; g < 3; g++ {
		for _, c := range candidates {
			if group(c) == g {
				out = append(out, c)
			}
		}
	}
	return out
}

// ResolveAll resolves a batch with bounded parallelism. Requests sharing a name are resolved
// once, the result is keyed by name.
func (r *Resolver) ResolveAll(ctx context.Context, reqs []Request) map[string]domain.ImageRef {
	unique := make([]Request, 0, len(reqs))
	seen := make(map[string]bool, len(reqs))
	for _, req := range reqs {
		if seen[req.Name] {
			continue
		}
		seen[req.Name] = true
		unique = append(unique, req)
	}

	var (
		mu      sync.Mutex
		results = make(map[string]domain.ImageRef, len(unique))
	)

	p := pool.New().WithMaxGoroutines(r.parallelism)
	for _, req := range unique {
		p.Go(func() {
			ref := r.Resolve(ctx, req)
			mu.Lock()
			results[req.Name] = ref
			mu.Unlock()
		})
	}
	p.Wait()

	return results
}
