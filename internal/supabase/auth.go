package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/httpx"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type profileRow struct {
	CodigoUsuario int    `json:"CodigoUsuario"`
	Gamertag      string `json:"Gamertag"`
	FotoURL       string `json:"FotoURL"`
	Nome          string `json:"Nome"`
	Email         string `json:"Email"`
	Xuid          string `json:"Xuid"`
}

// SignIn exchanges email and password for an access token, then loads the profile row of
// the user from the usuarios table. Rejected credentials return domain.ErrUnauthorized.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.TrimSpace(email)

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, errors.Wrap(err, "could not encode credentials")
	}

	h := http.Header{}
	h.Set("apikey", c.apiKey)
	h.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=password", h, body)
	if err != nil {
		var se *httpx.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnauthorized) {
			return nil, errors.Wrap(domain.ErrUnauthorized, describe(err).Error())
		}
		return nil, describe(err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return nil, errors.Wrap(err, "could not decode token response")
	}
	if tok.AccessToken == "" {
		return nil, errors.Wrap(domain.ErrUnauthorized, "no access token returned")
	}

	params := url.Values{
		"select": {"CodigoUsuario,Gamertag,FotoURL,Nome,Email,Xuid"},
		"Email":  {"eq." + email},
	}

	h = http.Header{}
	h.Set("apikey", c.apiKey)
	h.Set("Authorization", "Bearer "+tok.AccessToken)

	var profiles []profileRow
	if err := c.http.GetJSON(ctx, c.baseURL+"/rest/v1/usuarios?"+params.Encode(), h, &profiles); err != nil {
		return nil, errors.Wrap(describe(err), "could not load user profile")
	}
	if len(profiles) == 0 {
		return nil, errors.Errorf("no profile row for %s in usuarios", email)
	}

	p := profiles[0]
	c.log.Debug().Str("email", email).Int("user", p.CodigoUsuario).Msg("signed in")

	return &domain.Session{
		AccessToken: tok.AccessToken,
		User: domain.User{
			ID:       p.CodigoUsuario,
			Email:    p.Email,
			Name:     p.Nome,
			Gamertag: p.Gamertag,
			Xuid:     p.Xuid,
			PhotoURL: p.FotoURL,
		},
		CreatedAt: time.Now(),
	}, nil
}
