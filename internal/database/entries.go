package database

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
)

var entryColumns = []string{
	"id", "owner_id", "name", "logged_date", "completion_date", "rating", "external_title_id",
}

var orderableColumns = map[domain.Column]bool{
	domain.ColumnID:              true,
	domain.ColumnOwnerID:         true,
	domain.ColumnName:            true,
	domain.ColumnLoggedDate:      true,
	domain.ColumnCompletionDate:  true,
	domain.ColumnRating:          true,
	domain.ColumnExternalTitleID: true,
}

// EntryRepo implements domain.Backend on the local database
type EntryRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewEntryRepo creates a new entry repository
func NewEntryRepo(log zerolog.Logger, db *DB) *EntryRepo {
	return &EntryRepo{
		log: log.With().Str("repo", "entries").Logger(),
		db:  db,
	}
}

var _ domain.Backend = (*EntryRepo)(nil)

func table(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindGame, domain.KindBook:
		return kind.Table(), nil
	}
	return "", errors.Errorf("unknown table %q", kind)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (r *EntryRepo) where(q domain.Query) sq.And {
	cond := sq.And{}
	if q.ID > 0 {
		cond = append(cond, sq.Eq{"id": q.ID})
	}
	if q.OwnerID > 0 {
		cond = append(cond, sq.Eq{"owner_id": q.OwnerID})
	}
	if q.NameContains != "" {
		cond = append(cond, sq.Expr(`name LIKE ? ESCAPE '\'`, "%"+escapeLike(q.NameContains)+"%"))
	}
	return cond
}

// Select returns matching rows and the size of the whole filtered set
func (r *EntryRepo) Select(ctx context.Context, kind domain.Kind, q domain.Query) ([]domain.Entry, int, error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, 0, err
	}

	queryBuilder := r.db.squirrel.
		Select(entryColumns...).
		From(tbl)

	if cond := r.where(q); len(cond) > 0 {
		queryBuilder = queryBuilder.Where(cond)
	}

	for o := q.Order; o != nil; o = o.Secondary {
		if !orderableColumns[o.Column] {
			return nil, 0, errors.Errorf("column %q cannot be ordered", o.Column)
		}
		dir := "DESC"
		if o.Direction == domain.Ascending {
			dir = "ASC"
		}
		queryBuilder = queryBuilder.OrderBy(string(o.Column) + " " + dir)
	}

	if q.Limit > 0 {
		queryBuilder = queryBuilder.Limit(uint64(q.Limit))
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Select")

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		var (
			e      domain.Entry
			rating sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Name, &e.LoggedDate, &e.CompletionDate, &rating, &e.ExternalTitleID); err != nil {
			return nil, 0, errors.Wrap(err, "error scanning row")
		}
		if rating.Valid {
			e.Rating = domain.Rating(rating.Float64)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "error iterating rows")
	}

	if q.Limit <= 0 {
		return entries, len(entries), nil
	}

	count, err := r.count(ctx, tbl, q)
	if err != nil {
		return nil, 0, err
	}

	return entries, count, nil
}

func (r *EntryRepo) count(ctx context.Context, tbl string, q domain.Query) (int, error) {
	queryBuilder := r.db.squirrel.
		Select("COUNT(*)").
		From(tbl)

	if cond := r.where(q); len(cond) > 0 {
		queryBuilder = queryBuilder.Where(cond)
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building count query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Count")

	var count int
	if err := r.db.handler.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "error executing count query")
	}
	return count, nil
}

func ratingValue(e domain.Entry) any {
	if e.Rating == nil {
		return nil
	}
	return *e.Rating
}

// Insert stores a new row; the id is generated by the database
func (r *EntryRepo) Insert(ctx context.Context, kind domain.Kind, e domain.Entry) (int, error) {
	tbl, err := table(kind)
	if err != nil {
		return 0, err
	}

	queryBuilder := r.db.squirrel.
		Insert(tbl).
		Columns("owner_id", "name", "logged_date", "completion_date", "rating", "external_title_id").
		Values(e.OwnerID, e.Name, e.LoggedDate, e.CompletionDate, ratingValue(e), e.ExternalTitleID)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Insert")

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

// Update replaces the editable fields of the row with the given id owned by ownerID
func (r *EntryRepo) Update(ctx context.Context, kind domain.Kind, ownerID, id int, e domain.Entry) error {
	tbl, err := table(kind)
	if err != nil {
		return err
	}

	queryBuilder := r.db.squirrel.
		Update(tbl).
		SetMap(map[string]any{
			"name":              e.Name,
			"logged_date":       e.LoggedDate,
			"completion_date":   e.CompletionDate,
			"rating":            ratingValue(e),
			"external_title_id": e.ExternalTitleID,
		}).
		Where(sq.Eq{"id": id, "owner_id": ownerID})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Update")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return affected(res, id)
}

// Delete removes the row with the given id owned by ownerID
func (r *EntryRepo) Delete(ctx context.Context, kind domain.Kind, ownerID, id int) error {
	tbl, err := table(kind)
	if err != nil {
		return err
	}

	query, args, err := r.db.squirrel.
		Delete(tbl).
		Where(sq.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "error building delete query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Delete")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing delete query")
	}

	return affected(res, id)
}

func affected(res sql.Result, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "error reading affected rows")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, "no row with id %d", id)
	}
	return nil
}

// MaxID returns the highest id currently in the table, 0 when empty
func (r *EntryRepo) MaxID(ctx context.Context, kind domain.Kind) (int, error) {
	tbl, err := table(kind)
	if err != nil {
		return 0, err
	}

	query, args, err := r.db.squirrel.
		Select("COALESCE(MAX(id), 0)").
		From(tbl).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	var id int
	if err := r.db.handler.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, errors.Wrap(err, "error executing query")
	}
	return id, nil
}
