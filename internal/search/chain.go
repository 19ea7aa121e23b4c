package search

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
)

// Chain tries providers in order and returns the first non-empty result
type Chain struct {
	log       zerolog.Logger
	providers []domain.SearchProvider
}

func NewChain(log zerolog.Logger, providers ...domain.SearchProvider) *Chain {
	return &Chain{
		log:       log.With().Str("module", "search").Str("provider", "chain").Logger(),
		providers: providers,
	}
}

var _ domain.SearchProvider = (*Chain)(nil)

// Search fails only when every provider failed. Providers with no result are skipped.
func (c *Chain) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	var errs []error
	for i, p := range c.providers {
		candidates, err := p.Search(ctx, query)
		if err != nil {
			c.log.Debug().Err(err).Int("provider", i).Str("query", query).Msg("provider failed")
			errs = append(errs, err)
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "search interrupted")
			}
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}

	if len(errs) > 0 && len(errs) == len(c.providers) {
		return nil, errors.Wrap(stderrors.Join(errs...), "all providers failed")
	}
	return []domain.Candidate{}, nil
}
