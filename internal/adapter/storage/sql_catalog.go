package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/core/domain"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/port"
)

const defaultItemsTable = "items"

const (
	colName         = "name"
	colDescription  = "description"
	colCategory     = "category"
	colAvailable    = "available"
	colLastKerb     = "last_kerb"
	colLastCheckout = "last_checkout"
	colCreatedAt    = "created_at"
	colUpdatedAt    = "updated_at"
)

// SQLCatalog implements port.Catalog over a relational items table. Queries
// are built with goqu for the engine's dialect and executed as interpolated
// SQL through a thin engine adapter.
type SQLCatalog struct {
	db      dbAdapter
	dialect goqu.DialectWrapper
	table   string
}

type CatalogOption func(*SQLCatalog)

// WithItemsTable overrides the default "items" table name.
func WithItemsTable(name string) CatalogOption {
	return func(c *SQLCatalog) {
		if name != "" {
			c.table = name
		}
	}
}

func newSQLCatalog(db dbAdapter, dialect string, opts ...CatalogOption) *SQLCatalog {
	c := &SQLCatalog{
		db:      db,
		dialect: goqu.Dialect(dialect),
		table:   defaultItemsTable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCatalogFromMySQL wraps a database/sql handle opened with the mysql
// driver. The DSN must carry parseTime=true so DATE columns scan as time.
func NewCatalogFromMySQL(db *sql.DB, opts ...CatalogOption) *SQLCatalog {
	return newSQLCatalog(sqlDBAdapter{db: db}, "mysql", opts...)
}

// NewCatalogFromPGXPool wraps a pgx connection pool.
func NewCatalogFromPGXPool(pool *pgxpool.Pool, opts ...CatalogOption) *SQLCatalog {
	return newSQLCatalog(pgxPoolAdapter{pool: pool}, "postgres", opts...)
}

// NewCatalogFromSQLX wraps an sqlx handle, picking the dialect from the
// handle's driver name.
func NewCatalogFromSQLX(db *sqlx.DB, opts ...CatalogOption) *SQLCatalog {
	return newSQLCatalog(sqlxDBAdapter{db: db}, dialectFor(db.DriverName()), opts...)
}

func dialectFor(driverName string) string {
	switch driverName {
	case "postgres", "pgx":
		return "postgres"
	default:
		return "mysql"
	}
}

func (c *SQLCatalog) Find(ctx context.Context, name string) (*domain.Item, error) {
	query, _, err := c.dialect.From(c.table).
		Select(colName, colDescription, colCategory, colAvailable, colLastKerb, colLastCheckout, colCreatedAt, colUpdatedAt).
		Where(goqu.Func("LOWER", goqu.C(colName)).Eq(domain.Key(name))).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	rows, err := c.db.QueryRows(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read item: %w", err)
		}
		return nil, nil
	}

	item, err := scanItem(rows)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *SQLCatalog) Update(ctx context.Context, name string, upd port.AvailabilityUpdate) error {
	record := goqu.Record{
		colAvailable: upd.Available,
		colUpdatedAt: goqu.L("NOW()"),
	}
	if upd.LastKerb != nil {
		record[colLastKerb] = *upd.LastKerb
	} else {
		record[colLastKerb] = nil
	}
	if upd.LastCheckout != nil {
		record[colLastCheckout] = upd.LastCheckout.Format("2006-01-02")
	}

	query, _, err := c.dialect.Update(c.table).
		Set(record).
		Where(goqu.Func("LOWER", goqu.C(colName)).Eq(domain.Key(name))).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update query: %w", err)
	}

	affected, err := c.db.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %q has no catalog row", name)
	}
	return nil
}

func (c *SQLCatalog) List(ctx context.Context) ([]domain.Item, error) {
	query, _, err := c.dialect.From(c.table).
		Select(colName, colDescription, colCategory, colAvailable, colLastKerb, colLastCheckout, colCreatedAt, colUpdatedAt).
		Order(goqu.C(colName).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := c.db.QueryRows(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	return items, nil
}

func scanItem(rows dbRows) (domain.Item, error) {
	var (
		item         domain.Item
		description  sql.NullString
		category     sql.NullString
		lastKerb     sql.NullString
		lastCheckout sql.NullTime
	)
	err := rows.Scan(
		&item.Name,
		&description,
		&category,
		&item.Available,
		&lastKerb,
		&lastCheckout,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return domain.Item{}, fmt.Errorf("scan item: %w", err)
	}

	item.Description = description.String
	item.Category = category.String
	if lastKerb.Valid {
		kerb := lastKerb.String
		item.LastKerb = &kerb
	}
	if lastCheckout.Valid {
		due := lastCheckout.Time
		item.LastCheckout = &due
	}
	return item, nil
}
