package search

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
	"github.com/mozillazg/go-unidecode"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
)

const (
	maxPageCandidates = 10
	minImageEdge      = 100
	pageTimeout       = 15 * time.Second
)

// Slug folds s to lowercase ASCII words joined by dashes
func Slug(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))

	var b strings.Builder
	dash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// PageProvider scrapes a web page built from a template and collects its og:image and
// sufficiently large <img> tags. The template may contain {query} (query-escaped) and
// {slug} placeholders.
type PageProvider struct {
	log      zerolog.Logger
	template string
	setup    func(*colly.Collector)
}

type PageOption func(*PageProvider)

// WithCollectorSetup lets callers tune each collector, e.g. its transport
func WithCollectorSetup(fn func(*colly.Collector)) PageOption {
	return func(p *PageProvider) {
		p.setup = fn
	}
}

func NewPageProvider(log zerolog.Logger, template string, opts ...PageOption) *PageProvider {
	p := &PageProvider{
		log:      log.With().Str("module", "search").Str("provider", "page").Logger(),
		template: template,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ domain.SearchProvider = (*PageProvider)(nil)

func (p *PageProvider) pageURL(query string) string {
	r := strings.NewReplacer(
		"{query}", url.QueryEscape(query),
		"{slug}", Slug(query),
	)
	return r.Replace(p.template)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	return n
}

func (p *PageProvider) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	if p.template == "" {
		return nil, errors.New("page template is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Collectors are not shared, Search may run concurrently.
	cc := colly.NewCollector(colly.AllowURLRevisit())
	extensions.RandomUserAgent(cc)

	timeout := pageTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	cc.SetRequestTimeout(timeout)

	if p.setup != nil {
		p.setup(cc)
	}

	var (
		mu         sync.Mutex
		seen       = map[string]bool{}
		candidates []domain.Candidate
		ogWidth    int
		ogHeight   int
	)

	add := func(c domain.Candidate) {
		mu.Lock()
		defer mu.Unlock()
		if c.URL == "" || seen[c.URL] || len(candidates) >= maxPageCandidates {
			return
		}
		seen[c.URL] = true
		candidates = append(candidates, c)
	}

	cc.OnHTML(`meta[property="og:image:width"]`, func(e *colly.HTMLElement) {
		ogWidth = atoi(e.Attr("content"))
	})
	cc.OnHTML(`meta[property="og:image:height"]`, func(e *colly.HTMLElement) {
		ogHeight = atoi(e.Attr("content"))
	})

	var og []string
	cc.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		og = append(og, e.Request.AbsoluteURL(e.Attr("content")))
	})

	var imgs []domain.Candidate
	cc.OnHTML("img[src]", func(e *colly.HTMLElement) {
		src := e.Attr("src")
		if strings.HasPrefix(src, "data:") {
			return
		}
		w, h := atoi(e.Attr("width")), atoi(e.Attr("height"))
		if (w > 0 && w < minImageEdge) || (h > 0 && h < minImageEdge) {
			return
		}
		imgs = append(imgs, domain.Candidate{URL: e.Request.AbsoluteURL(src), Width: w, Height: h})
	})

	var visitErr error
	cc.OnError(func(r *colly.Response, err error) {
		visitErr = errors.Wrapf(err, "scraping %s failed with status %d", r.Request.URL, r.StatusCode)
	})

	target := p.pageURL(query)
	p.log.Trace().Str("url", target).Msg("visiting")

	if err := cc.Visit(target); err != nil && visitErr == nil {
		visitErr = errors.Wrapf(err, "could not visit %s", target)
	}
	if visitErr != nil {
		return nil, visitErr
	}

	// og:image first, it usually is the canonical cover of the page
	for _, u := range og {
		add(domain.Candidate{URL: u, Width: ogWidth, Height: ogHeight})
	}
	for _, c := range imgs {
		add(c)
	}

	p.log.Debug().Str("query", query).Int("candidates", len(candidates)).Msg("page scrape done")
	return candidates, nil
}
