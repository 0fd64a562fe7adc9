// Package pgdatastore implements datasource.Backend on PostgreSQL using
// database/sql with the pgx driver and squirrel-built queries.
package pgdatastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/store/storeutil"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"golang.org/x/sync/errgroup"
)

var _ datasource.Backend = (*Store)(nil)

const (
	driverName = "pgx"

	tableIndicators = "indicators"
	tableData       = "indicator_data"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// Store is the Postgres backend.
type Store struct {
	db  *sql.DB
	dsn string
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db, dsn: dsn}, nil
}

// DB exposes the pool for health checks and tests.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// validID reports whether id can possibly name a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// escapeLike escapes LIKE wildcards so user search text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

/* -------------------------------------------------------------------------- */
/* Row mapping                                                                */
/* -------------------------------------------------------------------------- */

var recordColumns = []string{
	"d.id::text", "d.indicator_id::text", "COALESCE(i.name, '')", "COALESCE(i.unit, '')",
	"d.category", "d.subcategory", "d.period_kind", "d.year", "d.month", "d.value", "d.status",
	"d.verified_by", "d.verified_by_name", "d.verified_at",
	"d.notes", "d.source_document", "d.created_by", "d.created_at", "d.updated_by", "d.updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.IndicatorDataRecord, error) {
	var (
		rec            models.IndicatorDataRecord
		kind           string
		year, month    int
		verifiedBy     sql.NullString
		verifiedByName sql.NullString
		verifiedAt     sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.IndicatorID, &rec.IndicatorName, &rec.Unit,
		&rec.Category, &rec.Subcategory, &kind, &year, &month, &rec.Value, &rec.Status,
		&verifiedBy, &verifiedByName, &verifiedAt,
		&rec.Notes, &rec.SourceDocument,
		&rec.Audit.CreatedBy, &rec.Audit.CreatedAt, &rec.Audit.UpdatedBy, &rec.Audit.UpdatedAt,
	)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	if models.PeriodKind(kind) == models.PeriodMonthly {
		rec.Period = models.MonthlyPeriod(year, month)
	} else {
		rec.Period = models.AnnualPeriod(year)
	}
	if verifiedAt.Valid {
		rec.Verification = &models.Verification{
			VerifiedBy:     verifiedBy.String,
			VerifiedByName: verifiedByName.String,
			VerifiedAt:     verifiedAt.Time,
		}
	}
	return rec, nil
}

func selectRecords() sq.SelectBuilder {
	return builder().Select(recordColumns...).
		From(tableData + " d").
		LeftJoin(tableIndicators + " i ON i.id = d.indicator_id")
}

/* -------------------------------------------------------------------------- */
/* Queries                                                                    */
/* -------------------------------------------------------------------------- */

func scopeWhere(q datasource.Query) sq.And {
	where := sq.And{}
	if q.Category != "" {
		where = append(where, sq.Eq{"d.category": string(q.Category)})
	}
	switch {
	case q.Subcategory != "":
		where = append(where, sq.Eq{"d.subcategory": q.Subcategory})
	case q.ExcludeSubcategory != "":
		where = append(where, sq.NotEq{"d.subcategory": q.ExcludeSubcategory})
	}
	return where
}

func filterWhere(q datasource.Query) sq.And {
	where := scopeWhere(q)
	if q.Search != "" {
		pat := "%" + escapeLike(q.Search) + "%"
		where = append(where, sq.Or{
			sq.ILike{"i.name": pat},
			sq.ILike{"d.notes": pat},
			sq.ILike{"d.subcategory": pat},
		})
	}
	if q.Year != 0 {
		where = append(where, sq.Eq{"d.year": q.Year})
	}
	if q.Status != "" {
		where = append(where, sq.Eq{"d.status": string(q.Status)})
	}
	if q.IndicatorName != "" {
		where = append(where, sq.Eq{"i.name_ci": text.Fold(q.IndicatorName)})
	}
	return where
}

// Fetch returns one page of a category's data, newest period first. The
// page, count, statistics and year list run concurrently.
func (s *Store) Fetch(ctx context.Context, q datasource.Query) (datasource.Result, error) {
	skip, limit := storeutil.Window(q.Page, q.Limit)
	scope := scopeWhere(q)
	filter := filterWhere(q)

	res := datasource.Result{
		Data:           []models.IndicatorDataRecord{},
		AvailableYears: []int{},
	}
	var total int

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		query, args, err := selectRecords().Where(filter).
			OrderBy("d.year DESC", "d.month DESC", "i.name_ci ASC", "d.id ASC").
			Limit(uint64(limit)).Offset(uint64(skip)).
			ToSql()
		if err != nil {
			return err
		}
		rows, err := s.db.QueryContext(gctx, query, args...)
		if err != nil {
			return fmt.Errorf("select indicator data: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return fmt.Errorf("scan indicator data: %w", err)
			}
			res.Data = append(res.Data, rec)
		}
		return rows.Err()
	})

	g.Go(func() error {
		query, args, err := builder().Select("count(*)").
			From(tableData + " d").
			LeftJoin(tableIndicators + " i ON i.id = d.indicator_id").
			Where(filter).ToSql()
		if err != nil {
			return err
		}
		return s.db.QueryRowContext(gctx, query, args...).Scan(&total)
	})

	g.Go(func() error {
		query, args, err := builder().Select("d.status", "count(*)").
			From(tableData + " d").Where(scope).GroupBy("d.status").ToSql()
		if err != nil {
			return err
		}
		rows, err := s.db.QueryContext(gctx, query, args...)
		if err != nil {
			return fmt.Errorf("count statuses: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var st models.Status
			var n int
			if err := rows.Scan(&st, &n); err != nil {
				return err
			}
			res.Statistics.Total += n
			switch st {
			case models.StatusDraft:
				res.Statistics.Draft = n
			case models.StatusPreliminary:
				res.Statistics.Preliminary = n
			case models.StatusFinal:
				res.Statistics.Final = n
			}
		}
		return rows.Err()
	})

	g.Go(func() error {
		query, args, err := builder().Select("count(DISTINCT d.indicator_id)").
			From(tableData + " d").Where(scope).ToSql()
		if err != nil {
			return err
		}
		return s.db.QueryRowContext(gctx, query, args...).Scan(&res.Statistics.Indicators)
	})

	g.Go(func() error {
		query, args, err := builder().Select("DISTINCT d.year").
			From(tableData + " d").Where(scope).OrderBy("d.year DESC").ToSql()
		if err != nil {
			return err
		}
		rows, err := s.db.QueryContext(gctx, query, args...)
		if err != nil {
			return fmt.Errorf("list years: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var y int
			if err := rows.Scan(&y); err != nil {
				return err
			}
			res.AvailableYears = append(res.AvailableYears, y)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return datasource.Result{}, err
	}

	res.Pagination = models.Pagination{
		TotalItems:  total,
		TotalPages:  models.TotalPagesFor(total, int(limit)),
		CurrentPage: storeutil.EffectivePage(q.Page),
		PageSize:    int(limit),
	}
	return res, nil
}

// Get returns one record with its indicator details.
func (s *Store) Get(ctx context.Context, id string) (models.IndicatorDataRecord, error) {
	if !validID(id) {
		return models.IndicatorDataRecord{}, datasource.ErrNotFound
	}
	query, args, err := selectRecords().Where(sq.Eq{"d.id": id}).ToSql()
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.IndicatorDataRecord{}, datasource.ErrNotFound
	}
	return rec, err
}

/* -------------------------------------------------------------------------- */
/* Mutations                                                                  */
/* -------------------------------------------------------------------------- */

// Create inserts a new observation.
func (s *Store) Create(ctx context.Context, actor datasource.Actor, in datasource.NewRecord) (models.IndicatorDataRecord, error) {
	if err := in.Period.Validate(); err != nil {
		return models.IndicatorDataRecord{}, datasource.NewValidationError("period", err.Error())
	}
	ind, err := s.GetIndicator(ctx, in.IndicatorID)
	if errors.Is(err, datasource.ErrNotFound) {
		return models.IndicatorDataRecord{}, datasource.NewValidationError("indicator_id", "Unknown indicator.")
	}
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	switch {
	case ind.IsInflation() && in.Period.Kind != models.PeriodMonthly:
		return models.IndicatorDataRecord{}, datasource.NewValidationError("month", "Month is required for inflation indicators.")
	case !ind.IsInflation() && in.Period.Kind != models.PeriodAnnual:
		return models.IndicatorDataRecord{}, datasource.NewValidationError("month", "Month is only allowed for inflation indicators.")
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	query, args, err := builder().Insert(tableData).
		Columns("id", "indicator_id", "category", "subcategory", "period_kind", "year", "month",
			"value", "status", "notes", "source_document",
			"created_by", "created_at", "updated_by", "updated_at").
		Values(id, ind.ID, string(ind.Category), ind.Subcategory, string(in.Period.Kind), in.Period.Year, in.Period.Month,
			in.Value, string(in.Status), in.Notes, in.SourceDocument,
			actor.ID, now, actor.ID, now).
		ToSql()
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		switch pgCode(err) {
		case codeUniqueViolation:
			return models.IndicatorDataRecord{}, s.duplicate(ctx, ind.ID, in.Period)
		case codeForeignKeyViolation:
			return models.IndicatorDataRecord{}, datasource.NewValidationError("indicator_id", "Unknown indicator.")
		case codeCheckViolation:
			return models.IndicatorDataRecord{}, datasource.NewValidationError("", "Record violates a data rule.")
		}
		return models.IndicatorDataRecord{}, fmt.Errorf("insert indicator data: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Store) duplicate(ctx context.Context, indicatorID string, p models.Period) error {
	dup := &datasource.DuplicateError{IndicatorID: indicatorID, Period: p}
	query, args, err := builder().Select("id::text").From(tableData).
		Where(sq.Eq{"indicator_id": indicatorID, "year": p.Year, "month": p.Month}).ToSql()
	if err != nil {
		return dup
	}
	var existing string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&existing); err == nil {
		dup.ExistingID = existing
	}
	return dup
}

// Update applies a patch. Moving a final record back to draft or
// preliminary clears its verification.
func (s *Store) Update(ctx context.Context, actor datasource.Actor, id string, p datasource.Patch) (models.IndicatorDataRecord, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}

	period := cur.Period
	if p.Year != nil {
		period.Year = *p.Year
	}
	if p.Month != nil {
		if period.Kind != models.PeriodMonthly {
			return models.IndicatorDataRecord{}, datasource.NewValidationError("month", "Month is only allowed for inflation indicators.")
		}
		period.Month = *p.Month
	}
	if err := period.Validate(); err != nil {
		return models.IndicatorDataRecord{}, datasource.NewValidationError("period", err.Error())
	}

	upd := builder().Update(tableData).
		Set("year", period.Year).
		Set("month", period.Month).
		Set("updated_by", actor.ID).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})
	if p.Value != nil {
		upd = upd.Set("value", *p.Value)
	}
	if p.Status != nil {
		if *p.Status == models.StatusFinal && cur.Status != models.StatusFinal {
			return models.IndicatorDataRecord{}, datasource.NewValidationError("status", "Use verify to finalize a record.")
		}
		upd = upd.Set("status", string(*p.Status))
		if *p.Status != models.StatusFinal {
			upd = upd.Set("verified_by", nil).Set("verified_by_name", nil).Set("verified_at", nil)
		}
	}
	if p.Notes != nil {
		upd = upd.Set("notes", *p.Notes)
	}
	if p.SourceDocument != nil {
		upd = upd.Set("source_document", *p.SourceDocument)
	}

	query, args, err := upd.ToSql()
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return models.IndicatorDataRecord{}, datasource.NewValidationError("year", "Data for this indicator and period already exists.")
		}
		return models.IndicatorDataRecord{}, fmt.Errorf("update indicator data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.IndicatorDataRecord{}, fmt.Errorf("update indicator data: %w", err)
	}
	if n == 0 {
		return models.IndicatorDataRecord{}, datasource.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, actor datasource.Actor, id string) error {
	if !validID(id) {
		return datasource.ErrNotFound
	}
	query, args, err := builder().Delete(tableData).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete indicator data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete indicator data: %w", err)
	}
	if n == 0 {
		return datasource.ErrNotFound
	}
	return nil
}

// Verify promotes a preliminary record to final. The status check is part
// of the UPDATE so concurrent verifies cannot both succeed.
func (s *Store) Verify(ctx context.Context, actor datasource.Actor, id string) (models.IndicatorDataRecord, error) {
	if !validID(id) {
		return models.IndicatorDataRecord{}, datasource.ErrNotFound
	}
	now := time.Now().UTC()
	query, args, err := builder().Update(tableData).
		Set("status", string(models.StatusFinal)).
		Set("verified_by", actor.ID).
		Set("verified_by_name", actor.Name).
		Set("verified_at", now).
		Set("updated_by", actor.ID).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "status": string(models.StatusPreliminary)}).
		ToSql()
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.IndicatorDataRecord{}, fmt.Errorf("verify indicator data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.IndicatorDataRecord{}, fmt.Errorf("verify indicator data: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return models.IndicatorDataRecord{}, err
		}
		return models.IndicatorDataRecord{}, datasource.ErrInvalidState
	}
	return s.Get(ctx, id)
}
