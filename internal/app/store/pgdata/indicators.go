// internal/app/store/pgdata/indicators.go
package pgdatastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
)

var indicatorColumns = []string{"id::text", "name", "category", "subcategory", "unit", "created_at", "updated_at"}

func scanIndicator(row rowScanner) (models.Indicator, error) {
	var ind models.Indicator
	err := row.Scan(&ind.ID, &ind.Name, &ind.Category, &ind.Subcategory, &ind.Unit, &ind.CreatedAt, &ind.UpdatedAt)
	return ind, err
}

// GetIndicator returns one indicator.
func (s *Store) GetIndicator(ctx context.Context, id string) (models.Indicator, error) {
	if !validID(id) {
		return models.Indicator{}, datasource.ErrNotFound
	}
	query, args, err := builder().Select(indicatorColumns...).From(tableIndicators).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return models.Indicator{}, err
	}
	ind, err := scanIndicator(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Indicator{}, datasource.ErrNotFound
	}
	return ind, err
}

// ListIndicators implements datasource.Indicators.
func (s *Store) ListIndicators(ctx context.Context, category models.Category) ([]models.Indicator, error) {
	sel := builder().Select(indicatorColumns...).From(tableIndicators).
		OrderBy("category", "subcategory", "name_ci")
	if category != "" {
		sel = sel.Where(sq.Eq{"category": string(category)})
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Indicator{}
	for rows.Next() {
		ind, err := scanIndicator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

// Catalogue exposes the indicator catalogue for seeding.
func (s *Store) Catalogue() *Catalogue { return &Catalogue{s: s} }

// Catalogue manages the indicators table.
type Catalogue struct {
	s *Store
}

// Exists checks if an indicator with this name exists in the category.
func (c *Catalogue) Exists(ctx context.Context, category models.Category, name string) (bool, error) {
	query, args, err := builder().Select("count(*)").From(tableIndicators).
		Where(sq.Eq{"category": string(category), "name_ci": text.Fold(name)}).ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := c.s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Upsert creates or updates an indicator keyed by category and name.
func (c *Catalogue) Upsert(ctx context.Context, ind models.Indicator) error {
	now := time.Now().UTC()
	query, args, err := builder().Insert(tableIndicators).
		Columns("id", "name", "name_ci", "category", "subcategory", "unit", "created_at", "updated_at").
		Values(uuid.NewString(), ind.Name, text.Fold(ind.Name), string(ind.Category), ind.Subcategory, ind.Unit, now, now).
		Suffix(`ON CONFLICT (category, name_ci) DO UPDATE SET
	name = excluded.name,
	subcategory = excluded.subcategory,
	unit = excluded.unit,
	updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.s.db.ExecContext(ctx, query, args...)
	return err
}
