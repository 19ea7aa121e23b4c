package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// UserRepo keeps local accounts and signs them in
type UserRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewUserRepo(log zerolog.Logger, db *DB) *UserRepo {
	return &UserRepo{
		log: log.With().Str("repo", "users").Logger(),
		db:  db,
	}
}

var _ domain.Authenticator = (*UserRepo)(nil)

// CreateUser stores a new account with a bcrypt hash of password and returns its id
func (r *UserRepo) CreateUser(ctx context.Context, u domain.User, password string) (int, error) {
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return 0, domain.NewValidationError("email", "email is required")
	}
	if password == "" {
		return 0, domain.NewValidationError("password", "password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, errors.Wrap(err, "could not hash password")
	}

	query, args, err := r.db.squirrel.
		Insert("users").
		Columns("email", "password_hash", "name", "gamertag", "xuid", "photo_url").
		Values(email, string(hash), u.Name, u.Gamertag, u.Xuid, u.PhotoURL).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Str("email", email).Msg("CreateUser")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "error executing query")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "error reading inserted id")
	}

	return int(id), nil
}

// SignIn checks the password against the stored hash. Unknown emails and wrong passwords
// both return domain.ErrUnauthorized.
func (r *UserRepo) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	query, args, err := r.db.squirrel.
		Select("id", "email", "password_hash", "name", "gamertag", "xuid", "photo_url").
		From("users").
		Where(sq.Eq{"email": strings.TrimSpace(email)}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Str("email", email).Msg("SignIn")

	var (
		u    domain.User
		hash string
	)
	err = r.db.handler.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Email, &hash, &u.Name, &u.Gamertag, &u.Xuid, &u.PhotoURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUnauthorized
		}
		return nil, errors.Wrap(err, "error executing query")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	return &domain.Session{
		AccessToken: uuid.NewString(),
		User:        u,
		CreatedAt:   time.Now(),
	}, nil
}
