// Package supabase talks to a Supabase project: PostgREST tables for entries and GoTrue for sign in.
package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/httpx"
)

var remoteTables = map[domain.Kind]string{
	domain.KindGame: "jogos",
	domain.KindBook: "livros",
}

var remoteColumns = map[domain.Column]string{
	domain.ColumnID:              "id",
	domain.ColumnOwnerID:         "CodigoUsuario",
	domain.ColumnName:            "nome",
	domain.ColumnLoggedDate:      "data",
	domain.ColumnCompletionDate:  "dataCompleto",
	domain.ColumnRating:          "avaliacao",
	domain.ColumnExternalTitleID: "titleId",
}

// Client implements domain.Backend and domain.Authenticator against Supabase
type Client struct {
	log     zerolog.Logger
	http    *httpx.Client
	baseURL string
	apiKey  string

	mu    sync.RWMutex
	token string
}

func NewClient(log zerolog.Logger, baseURL, apiKey string, hc *httpx.Client) *Client {
	return &Client{
		log:     log.With().Str("module", "supabase").Logger(),
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

var (
	_ domain.Backend       = (*Client)(nil)
	_ domain.Authenticator = (*Client)(nil)
)

// SetAccessToken makes subsequent table calls act as the signed-in user
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) headers(extra ...string) http.Header {
	c.mu.RLock()
	bearer := c.token
	c.mu.RUnlock()
	if bearer == "" {
		bearer = c.apiKey
	}

	h := http.Header{}
	h.Set("apikey", c.apiKey)
	h.Set("Authorization", "Bearer "+bearer)
	h.Set("Accept", "application/json")
	for i := 0; i+1 < len(extra); i += 2 {
		h.Add(extra[i], extra[i+1])
	}
	return h
}

func (c *Client) tableURL(kind domain.Kind, params url.Values) (string, error) {
	tbl, ok := remoteTables[kind]
	if !ok {
		return "", errors.Errorf("unknown table %q", kind)
	}

	u := c.baseURL + "/rest/v1/" + tbl
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u, nil
}

type remoteRow struct {
	ID            int      `json:"id"`
	CodigoUsuario int      `json:"CodigoUsuario"`
	Nome          string   `json:"nome"`
	Data          string   `json:"data"`
	DataCompleto  *string  `json:"dataCompleto"`
	Avaliacao     *float64 `json:"avaliacao"`
	TitleID       *string  `json:"titleId"`
}

func (r remoteRow) entry() domain.Entry {
	e := domain.Entry{
		ID:         r.ID,
		OwnerID:    r.CodigoUsuario,
		Name:       r.Nome,
		LoggedDate: r.Data,
		Rating:     r.Avaliacao,
	}
	if r.DataCompleto != nil {
		e.CompletionDate = *r.DataCompleto
	}
	if r.TitleID != nil {
		e.ExternalTitleID = *r.TitleID
	}
	return e
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// payload builds the write body. Book tables have no completion or title columns.
func payload(kind domain.Kind, e domain.Entry, withOwner bool) map[string]any {
	p := map[string]any{
		"nome":      e.Name,
		"data":      e.LoggedDate,
		"avaliacao": e.Rating,
	}
	if withOwner {
		p["CodigoUsuario"] = e.OwnerID
	}
	if kind == domain.KindGame {
		p["dataCompleto"] = nullable(e.CompletionDate)
		p["titleId"] = nullable(e.ExternalTitleID)
	}
	return p
}

// apiError is the error body returned by PostgREST and GoTrue
type apiError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Code             any    `json:"code"`
}

func describe(err error) error {
	var se *httpx.StatusError
	if !errors.As(err, &se) {
		return err
	}

	var body apiError
	if json.Unmarshal([]byte(se.Body), &body) != nil {
		return err
	}

	for _, msg := range []string{body.Message, body.ErrorDescription, body.Msg} {
		if msg != "" {
			return errors.Wrap(err, msg)
		}
	}
	return err
}

func orderParam(o *domain.Order) (string, error) {
	var parts []string
	for ; o != nil; o = o.Secondary {
		col, ok := remoteColumns[o.Column]
		if !ok {
			return "", errors.Errorf("column %q cannot be ordered", o.Column)
		}
		dir := "desc"
		if o.Direction == domain.Ascending {
			dir = "asc"
		}
		parts = append(parts, col+"."+dir)
	}
	return strings.Join(parts, ","), nil
}

// parseCount reads the total from a Content-Range header like "0-24/3573" or "*/0"
func parseCount(header string) (int, bool) {
	i := strings.LastIndex(header, "/")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(header[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	"%", `\%`,
	"_", `\_`,
	// PostgREST turns every * into %, the closest literal match is any single character
	"*", "_",
)

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// ilikeContains builds a case-insensitive substring filter for name with LIKE wildcards escaped.
// The value is quoted when it holds characters PostgREST treats as syntax.
func ilikeContains(name string) string {
	pattern := "*" + likeEscaper.Replace(name) + "*"
	if strings.ContainsAny(pattern, `,.:()"\`) {
		pattern = `"` + quoteEscaper.Replace(pattern) + `"`
	}
	return "ilike." + pattern
}

func (c *Client) Select(ctx context.Context, kind domain.Kind, q domain.Query) ([]domain.Entry, int, error) {
	params := url.Values{}
	params.Set("select", "*")
	if q.ID > 0 {
		params.Set("id", "eq."+strconv.Itoa(q.ID))
	}
	if q.OwnerID > 0 {
		params.Set("CodigoUsuario", "eq."+strconv.Itoa(q.OwnerID))
	}
	if q.NameContains != "" {
		params.Set("nome", ilikeContains(q.NameContains))
	}
	if q.Order != nil {
		order, err := orderParam(q.Order)
		if err != nil {
			return nil, 0, err
		}
		params.Set("order", order)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	u, err := c.tableURL(kind, params)
	if err != nil {
		return nil, 0, err
	}

	c.log.Trace().Str("url", u).Msg("Select")

	resp, err := c.http.Do(ctx, http.MethodGet, u, c.headers("Prefer", "count=exact"), nil)
	if err != nil {
		return nil, 0, describe(err)
	}

	var rows []remoteRow
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return nil, 0, errors.Wrap(err, "could not decode rows")
	}

	entries := make([]domain.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}

	count, ok := parseCount(resp.Header.Get("Content-Range"))
	if !ok {
		count = len(entries)
	}

	return entries, count, nil
}

func (c *Client) write(ctx context.Context, method, u string, body any) ([]remoteRow, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode row")
	}

	h := c.headers("Prefer", "return=representation", "Content-Type", "application/json")
	resp, err := c.http.Do(ctx, method, u, h, data)
	if err != nil {
		return nil, describe(err)
	}

	var rows []remoteRow
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &rows); err != nil {
			return nil, errors.Wrap(err, "could not decode rows")
		}
	}
	return rows, nil
}

// Insert posts a new row and returns the id generated by the database
func (c *Client) Insert(ctx context.Context, kind domain.Kind, e domain.Entry) (int, error) {
	u, err := c.tableURL(kind, nil)
	if err != nil {
		return 0, err
	}

	c.log.Trace().Str("url", u).Str("name", e.Name).Msg("Insert")

	rows, err := c.write(ctx, http.MethodPost, u, []map[string]any{payload(kind, e, true)})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.New("insert returned no row")
	}

	return rows[0].ID, nil
}

// byID filters one row of one owner
func byID(ownerID, id int) url.Values {
	return url.Values{
		"id":            {"eq." + strconv.Itoa(id)},
		"CodigoUsuario": {"eq." + strconv.Itoa(ownerID)},
	}
}

func (c *Client) Update(ctx context.Context, kind domain.Kind, ownerID, id int, e domain.Entry) error {
	u, err := c.tableURL(kind, byID(ownerID, id))
	if err != nil {
		return err
	}

	c.log.Trace().Str("url", u).Msg("Update")

	rows, err := c.write(ctx, http.MethodPatch, u, payload(kind, e, false))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.Wrapf(domain.ErrNotFound, "no row with id %d", id)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, kind domain.Kind, ownerID, id int) error {
	u, err := c.tableURL(kind, byID(ownerID, id))
	if err != nil {
		return err
	}

	c.log.Trace().Str("url", u).Msg("Delete")

	resp, err := c.http.Do(ctx, http.MethodDelete, u, c.headers("Prefer", "return=representation"), nil)
	if err != nil {
		return describe(err)
	}

	var rows []remoteRow
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return errors.Wrap(err, "could not decode rows")
	}
	if len(rows) == 0 {
		return errors.Wrapf(domain.ErrNotFound, "no row with id %d", id)
	}
	return nil
}

func (c *Client) MaxID(ctx context.Context, kind domain.Kind) (int, error) {
	u, err := c.tableURL(kind, url.Values{
		"select": {"id"},
		"order":  {"id.desc"},
		"limit":  {"1"},
	})
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(ctx, http.MethodGet, u, c.headers(), nil)
	if err != nil {
		return 0, describe(err)
	}

	var rows []struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return 0, errors.Wrap(err, "could not decode rows")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].ID, nil
}
