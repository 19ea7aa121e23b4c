package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
)

// SessionRepo stores the single signed-in session of this client
type SessionRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewSessionRepo(log zerolog.Logger, db *DB) domain.SessionRepo {
	return &SessionRepo{
		log: log.With().Str("repo", "session").Logger(),
		db:  db,
	}
}

// GetSession returns domain.ErrNotFound when nobody is logged in
func (r *SessionRepo) GetSession(ctx context.Context) (*domain.Session, error) {
	query, args, err := r.db.squirrel.
		Select("payload").
		From("session").
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	var payload string
	if err := r.db.handler.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "error executing query")
	}

	s := &domain.Session{}
	if err := json.Unmarshal([]byte(payload), s); err != nil {
		return nil, errors.Wrap(err, "could not decode session")
	}

	return s, nil
}

func (r *SessionRepo) SaveSession(ctx context.Context, s domain.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "could not encode session")
	}

	query, args, err := r.db.squirrel.
		Replace("session").
		Columns("id", "payload", "created_at").
		Values(1, string(payload), s.CreatedAt.UTC().Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Str("email", s.User.Email).Msg("SaveSession")

	if _, err := r.db.handler.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context) error {
	query, args, err := r.db.squirrel.Delete("session").ToSql()
	if err != nil {
		return errors.Wrap(err, "error building delete query")
	}

	if _, err := r.db.handler.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "error executing delete query")
	}

	return nil
}
