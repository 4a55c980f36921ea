package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	ps := &PostgresStore{db: db}
	if err := ps.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to init catalog schema: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) initSchema() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id          INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price       NUMERIC(10,2) NOT NULL,
			available   INTEGER NOT NULL DEFAULT 0,
			image_url   TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

// Upsert inserts or replaces a product record.
func (ps *PostgresStore) Upsert(ctx context.Context, p Product) error {
	_, err := ps.db.ExecContext(ctx,
		`INSERT INTO products (id, name, description, price, available, image_url, category, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			available = EXCLUDED.available,
			image_url = EXCLUDED.image_url,
			category = EXCLUDED.category,
			updated_at = NOW()`,
		p.ID, p.Name, p.Description, p.Price.StringFixed(2), p.Available, p.Image, p.Category,
	)
	return err
}

func (ps *PostgresStore) Get(ctx context.Context, id int) (Product, error) {
	row := ps.db.QueryRowContext(ctx,
		`SELECT id, name, description, price, available, image_url, category
		 FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (ps *PostgresStore) List(ctx context.Context, category, search string) ([]Product, error) {
	query := `SELECT id, name, description, price, available, image_url, category
		 FROM products WHERE 1=1`
	args := []any{}

	if category != "" && category != CategoryAll {
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY id"

	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Available, &p.Image, &p.Category); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("invalid stored price %q: %w", price, err)
	}
	p.Price = d
	return p, nil
}
