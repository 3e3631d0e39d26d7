package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/product-desk/internal/domain/product"
)

const productColumns = `id, title, COALESCE(description, ''), image_urls, product_url,
		price::text, status, created_at, updated_at`

const (
	listProductsSQL = `SELECT ` + productColumns + `
		FROM products ORDER BY created_at DESC, id`

	createProductSQL = `INSERT INTO products (id, title, description, image_urls, product_url, price, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING ` + productColumns

	updateStatusSQL = `UPDATE products SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	upsertProductSQL = `INSERT INTO products
		(id, title, description, image_urls, product_url, price, status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7,
			COALESCE($8::timestamptz, now()), COALESCE($8::timestamptz, now()))
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			image_urls = EXCLUDED.image_urls,
			product_url = EXCLUDED.product_url,
			price = EXCLUDED.price,
			status = EXCLUDED.status,
			updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool DBPool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool DBPool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// Create inserts p. The price text is stored as NUMERIC and read back as text,
// so it round-trips without float conversion.
func (r *ProductRepository) Create(ctx context.Context, p product.Product) (*product.Product, error) {
	price, err := product.ParsePrice(p.Price)
	if err != nil {
		return nil, &product.ValidationError{Field: "price", Reason: err.Error()}
	}

	rows, err := r.pool.Query(ctx, createProductSQL,
		p.ID, p.Title, p.Description, p.ImageURLs, p.ProductURL, price, string(p.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("creating product %q: %w", p.ID, err)
	}

	created, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return &created, nil
}

// UpdateStatus sets the status of product id and bumps updated_at.
func (r *ProductRepository) UpdateStatus(ctx context.Context, id string, status product.Status) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, updateStatusSQL, id, string(status))
	if err != nil {
		return nil, fmt.Errorf("updating product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("updating product %q: %w", id, err)
	}
	return &p, nil
}

// Delete removes product id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Upsert inserts p or overwrites the stored product with the same id. A zero
// CreatedAt means now. Used by seeding, not by the API.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	price, err := product.ParsePrice(p.Price)
	if err != nil {
		return &product.ValidationError{Field: "price", Reason: err.Error()}
	}
	var createdAt *time.Time
	if !p.CreatedAt.IsZero() {
		createdAt = &p.CreatedAt
	}

	if _, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Title, p.Description, p.ImageURLs, p.ProductURL, price, string(p.Status), createdAt,
	); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p      product.Product
		status string
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.ImageURLs, &p.ProductURL,
		&p.Price, &status, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Status = product.Status(status)
	return p, err
}
