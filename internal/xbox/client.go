// Package xbox fetches the Xbox title history of a player, directly from OpenXBL or through
// the backlogdb proxy server.
package xbox

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/httpx"
)

const openXBLEndpoint = "https://xbl.io/api/v2"

// Client talks to OpenXBL. The key is a credential, only the proxy server should hold it.
type Client struct {
	log      zerolog.Logger
	http     *httpx.Client
	apiKey   string
	endpoint string
	language string
}

type Option func(*Client)

func WithEndpoint(u string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimRight(u, "/")
	}
}

// WithLanguage sets Accept-Language, titles are localized by OpenXBL
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

func NewClient(log zerolog.Logger, hc *httpx.Client, apiKey string, opts ...Option) *Client {
	c := &Client{
		log:      log.With().Str("module", "xbox").Logger(),
		http:     hc,
		apiKey:   apiKey,
		endpoint: openXBLEndpoint,
		language: "pt-BR",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domain.HistoryFetcher = (*Client)(nil)

type titleHistoryResponse struct {
	Xuid   string `json:"xuid"`
	Titles []struct {
		TitleID      string `json:"titleId"`
		Name         string `json:"name"`
		DisplayImage string `json:"displayImage"`
		TitleHistory struct {
			LastTimePlayed string `json:"lastTimePlayed"`
		} `json:"titleHistory"`
	} `json:"titles"`
}

// FetchHistory returns the title history of the player with the given xuid
func (c *Client) FetchHistory(ctx context.Context, xuid string) ([]domain.Title, error) {
	if c.apiKey == "" {
		return nil, errors.New("openxbl key is not configured")
	}
	if xuid == "" {
		return nil, domain.NewValidationError("xuid", "xuid is required")
	}

	header := http.Header{
		"X-Authorization": {c.apiKey},
		"Accept-Language": {c.language},
	}

	var resp titleHistoryResponse
	u := c.endpoint + "/player/titleHistory/" + url.PathEscape(xuid)
	if err := c.http.GetJSON(ctx, u, header, &resp); err != nil {
		return nil, errors.Wrap(err, "openxbl title history")
	}

	titles := make([]domain.Title, 0, len(resp.Titles))
	for _, t := range resp.Titles {
		title := domain.Title{
			Name:         t.Name,
			ExternalID:   t.TitleID,
			DisplayImage: t.DisplayImage,
		}
		if t.TitleHistory.LastTimePlayed != "" {
			played, err := time.Parse(time.RFC3339Nano, t.TitleHistory.LastTimePlayed)
			if err != nil {
				c.log.Debug().Str("title", t.Name).Str("value", t.TitleHistory.LastTimePlayed).Msg("unparseable last played time")
			}
			title.LastPlayed = played
		}
		titles = append(titles, title)
	}

	c.log.Debug().Str("xuid", xuid).Int("titles", len(titles)).Msg("title history fetched")

	return titles, nil
}

// ProxyClient fetches the history through the backlogdb proxy server
type ProxyClient struct {
	log     zerolog.Logger
	http    *httpx.Client
	baseURL string
	token   string
}

func NewProxyClient(log zerolog.Logger, hc *httpx.Client, baseURL, token string) *ProxyClient {
	return &ProxyClient{
		log:     log.With().Str("module", "xbox").Str("via", "proxy").Logger(),
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

var _ domain.HistoryFetcher = (*ProxyClient)(nil)

// HistoryResponse is the body served by the history proxy endpoint
type HistoryResponse struct {
	Titles []domain.Title `json:"titles"`
}

func (p *ProxyClient) FetchHistory(ctx context.Context, subjectID string) ([]domain.Title, error) {
	if p.baseURL == "" {
		return nil, errors.New("proxy url is not configured")
	}

	var h http.Header
	if p.token != "" {
		h = http.Header{"Authorization": {"Bearer " + p.token}}
	}

	var resp HistoryResponse
	u := p.baseURL + "/history-proxy?" + url.Values{"subjectId": {subjectID}}.Encode()
	if err := p.http.GetJSON(ctx, u, h, &resp); err != nil {
		return nil, errors.Wrap(err, "history proxy")
	}

	p.log.Debug().Str("subject", subjectID).Int("titles", len(resp.Titles)).Msg("title history fetched")

	return resp.Titles, nil
}
