// Package search holds the cover art search providers.
package search

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/httpx"
)

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleProvider queries the Custom Search JSON API in image mode. The key and engine id
// are credentials, only the proxy server should be configured with them.
type GoogleProvider struct {
	log      zerolog.Logger
	http     *httpx.Client
	apiKey   string
	cx       string
	endpoint string
}

type GoogleOption func(*GoogleProvider)

// WithGoogleEndpoint overrides the API endpoint
func WithGoogleEndpoint(u string) GoogleOption {
	return func(p *GoogleProvider) {
		p.endpoint = u
	}
}

func NewGoogleProvider(log zerolog.Logger, hc *httpx.Client, apiKey, cx string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		log:      log.With().Str("module", "search").Str("provider", "google").Logger(),
		http:     hc,
		apiKey:   apiKey,
		cx:       cx,
		endpoint: googleEndpoint,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ domain.SearchProvider = (*GoogleProvider)(nil)

type googleResponse struct {
	Items []struct {
		Link  string `json:"link"`
		Image struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"image"`
	} `json:"items"`
}

func (p *GoogleProvider) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	if p.apiKey == "" || p.cx == "" {
		return nil, errors.New("google search is not configured")
	}

	params := url.Values{
		"q":          {query},
		"cx":         {p.cx},
		"key":        {p.apiKey},
		"searchType": {"image"},
		"num":        {"10"},
		"imgSize":    {"large"},
	}

	var resp googleResponse
	if err := p.http.GetJSON(ctx, p.endpoint+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "google image search failed")
	}

	candidates := make([]domain.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{URL: item.Link, Width: item.Image.Width, Height: item.Image.Height})
	}

	p.log.Debug().Str("query", query).Int("candidates", len(candidates)).Msg("image search done")
	return candidates, nil
}
