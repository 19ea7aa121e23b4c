package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
)

// ImageCacheRepo implements domain.ImageCacheRepo interface
type ImageCacheRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewImageCacheRepo creates a new image cache repository
func NewImageCacheRepo(log zerolog.Logger, db *DB) domain.ImageCacheRepo {
	return &ImageCacheRepo{
		log: log.With().Str("repo", "image_cache").Logger(),
		db:  db,
	}
}

// GetImage returns the cached cover for name, domain.ErrNotFound when there is none
func (r *ImageCacheRepo) GetImage(ctx context.Context, name string) (*domain.CachedImage, error) {
	queryBuilder := r.db.squirrel.
		Select("name", "kind", "source", "value", "cached_at").
		From("image_cache").
		Where(sq.Eq{"name": name})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("GetImage")

	var (
		img      domain.CachedImage
		cachedAt string
	)
	err = r.db.handler.QueryRowContext(ctx, query, args...).
		Scan(&img.Name, &img.Kind, &img.Source, &img.Value, &cachedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "error executing query")
	}

	img.CachedAt, _ = time.Parse(time.RFC3339, cachedAt)
	return &img, nil
}

// PutImage inserts or replaces the cached cover for img.Name
func (r *ImageCacheRepo) PutImage(ctx context.Context, img domain.CachedImage) error {
	if img.CachedAt.IsZero() {
		img.CachedAt = time.Now()
	}

	queryBuilder := r.db.squirrel.
		Replace("image_cache").
		Columns("name", "kind", "source", "value", "cached_at").
		Values(img.Name, string(img.Kind), string(img.Source), img.Value, img.CachedAt.UTC().Format(time.RFC3339))

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Str("name", img.Name).Msg("PutImage")

	_, err = r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

// DeleteImage evicts one cached cover
func (r *ImageCacheRepo) DeleteImage(ctx context.Context, name string) error {
	queryBuilder := r.db.squirrel.
		Delete("image_cache").
		Where(sq.Eq{"name": name})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building delete query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("DeleteImage")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing delete query")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "error reading affected rows")
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// PurgeImages drops every cached cover and returns how many were removed
func (r *ImageCacheRepo) PurgeImages(ctx context.Context) (int, error) {
	query, args, err := r.db.squirrel.Delete("image_cache").ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building delete query")
	}

	r.log.Trace().Str("query", query).Msg("PurgeImages")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "error executing delete query")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "error reading affected rows")
	}

	return int(n), nil
}

// CountImages returns the number of cached covers
func (r *ImageCacheRepo) CountImages(ctx context.Context) (int, error) {
	query, args, err := r.db.squirrel.Select("COUNT(*)").From("image_cache").ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	var count int
	if err := r.db.handler.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "error executing query")
	}

	return count, nil
}
