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

// SnapshotRepo implements domain.SnapshotRepo interface
type SnapshotRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewSnapshotRepo creates a new history snapshot repository
func NewSnapshotRepo(log zerolog.Logger, db *DB) domain.SnapshotRepo {
	return &SnapshotRepo{
		log: log.With().Str("repo", "history_snapshots").Logger(),
		db:  db,
	}
}

// GetSnapshot returns the persisted snapshot for userKey, domain.ErrNotFound when absent.
// Snapshots written by a different payload version are treated as absent.
func (r *SnapshotRepo) GetSnapshot(ctx context.Context, userKey string) (*domain.HistorySnapshot, error) {
	queryBuilder := r.db.squirrel.
		Select("version", "payload").
		From("history_snapshots").
		Where(sq.Eq{"user_key": userKey})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("GetSnapshot")

	var (
		version int
		payload string
	)
	if err := r.db.handler.QueryRowContext(ctx, query, args...).Scan(&version, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "error executing query")
	}

	if version != domain.SnapshotVersion {
		r.log.Debug().Str("user", userKey).Int("version", version).Msg("ignoring snapshot with unsupported version")
		return nil, domain.ErrNotFound
	}

	snap := &domain.HistorySnapshot{}
	if err := json.Unmarshal([]byte(payload), snap); err != nil {
		return nil, errors.Wrapf(err, "could not decode snapshot of %s", userKey)
	}

	return snap, nil
}

// SaveSnapshot replaces the snapshot of snap.UserKey
func (r *SnapshotRepo) SaveSnapshot(ctx context.Context, snap domain.HistorySnapshot) error {
	snap.Version = domain.SnapshotVersion

	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "could not encode snapshot")
	}

	queryBuilder := r.db.squirrel.
		Replace("history_snapshots").
		Columns("user_key", "version", "payload", "fetched_at").
		Values(snap.UserKey, snap.Version, string(payload), snap.FetchedAt.UTC().Format(time.RFC3339))

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Str("user", snap.UserKey).Int("titles", len(snap.Titles)).Msg("SaveSnapshot")

	if _, err := r.db.handler.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

// DeleteSnapshot drops the snapshot of userKey, a missing row is not an error
func (r *SnapshotRepo) DeleteSnapshot(ctx context.Context, userKey string) error {
	query, args, err := r.db.squirrel.
		Delete("history_snapshots").
		Where(sq.Eq{"user_key": userKey}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "error building delete query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("DeleteSnapshot")

	if _, err := r.db.handler.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "error executing delete query")
	}

	return nil
}
