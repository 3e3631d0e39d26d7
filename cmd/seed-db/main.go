// Command seed-db applies migrations and upserts demo products from a JSON
// array file, gzip-compressed when the name ends in .gz.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/storage/postgres"
	"github.com/xenking/product-desk/internal/wire"
)

func main() {
	var (
		databaseURL  string
		productsFile string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.json or .json.gz)")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, productsFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, productsFile string) error {
	if err := postgres.RunMigrations(ctx, databaseURL, lg); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	products, err := readSeed(productsFile)
	if err != nil {
		return errors.Wrap(err, "read seed")
	}
	lg.Info("Upserting products", zap.Int("count", len(products)), zap.String("path", productsFile))

	repo := postgres.NewProductRepository(pool)
	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Debug("Upserted product", zap.String("id", p.ID), zap.String("status", string(p.Status)))
	}
	return nil
}

// readSeed decodes and validates the seed file. Entries default to PENDING.
func readSeed(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	products, err := wire.DecodeProducts(jx.Decode(r, 64*1024))
	if err != nil {
		return nil, err
	}
	for i, p := range products {
		if p.ID == "" {
			return nil, errors.Errorf("product #%d: missing id", i)
		}
		in, err := product.Input{
			Title:       p.Title,
			Description: p.Description,
			ImageURLs:   p.ImageURLs,
			ProductURL:  p.ProductURL,
			Price:       p.Price,
		}.Normalize()
		if err != nil {
			return nil, errors.Wrapf(err, "product %s", p.ID)
		}
		p.Title, p.Description, p.ImageURLs, p.ProductURL, p.Price =
			in.Title, in.Description, in.ImageURLs, in.ProductURL, in.Price
		if p.Status == "" {
			p.Status = product.StatusPending
		}
		products[i] = p
	}
	return products, nil
}
