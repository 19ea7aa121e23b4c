package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/httpx"
)

// ProxyProvider asks the backlogdb proxy server, which holds the search credentials
type ProxyProvider struct {
	log     zerolog.Logger
	http    *httpx.Client
	baseURL string
	token   string
}

func NewProxyProvider(log zerolog.Logger, hc *httpx.Client, baseURL, token string) *ProxyProvider {
	return &ProxyProvider{
		log:     log.With().Str("module", "search").Str("provider", "proxy").Logger(),
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

var _ domain.SearchProvider = (*ProxyProvider)(nil)

func (p *ProxyProvider) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	if p.baseURL == "" {
		return nil, errors.New("proxy url is not configured")
	}

	var h http.Header
	if p.token != "" {
		h = http.Header{"Authorization": {"Bearer " + p.token}}
	}

	var candidates []domain.Candidate
	u := p.baseURL + "/cover-proxy?" + url.Values{"query": {query}}.Encode()
	if err := p.http.GetJSON(ctx, u, h, &candidates); err != nil {
		return nil, errors.Wrap(err, "cover proxy search failed")
	}

	p.log.Debug().Str("query", query).Int("candidates", len(candidates)).Msg("image search done")
	return candidates, nil
}
