// Command product-ingest imports gzip JSON-lines submission feeds as PENDING
// products, skipping repeated product URLs.
//
//	product-ingest -database-url postgres://... feeds/day1.jsonl.gz feeds/day2.jsonl.gz
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/events"
	"github.com/xenking/product-desk/internal/ingest"
	"github.com/xenking/product-desk/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		amqpURL     string
		cfg         ingest.Config
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL; publishes product.created events when set")
	flag.UintVar(&cfg.Capacity, "capacity", ingest.DefaultCapacity, "expected records per feed")
	flag.Float64Var(&cfg.FPR, "fpr", ingest.DefaultFPR, "bloom filter false positive rate")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "report counts without writing")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !cfg.DryRun {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	stats, err := run(ctx, lg, databaseURL, amqpURL, cfg, flag.Args())
	if err != nil {
		lg.Fatal("Product ingest failed", zap.Error(err))
	}
	lg.Info("Product ingest completed",
		zap.Int("read", stats.Read),
		zap.Int("created", stats.Created),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("invalid", stats.Invalid),
		zap.Int("malformed", stats.Malformed),
	)
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, amqpURL string, cfg ingest.Config, feeds []string) (ingest.Stats, error) {
	if cfg.DryRun {
		return ingest.New(cfg, nil, lg).Run(ctx, feeds)
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return ingest.Stats{}, errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	var publisher product.Publisher = product.NopPublisher{}
	if amqpURL != "" {
		p, closeFn, err := events.Dial(amqpURL)
		if err != nil {
			return ingest.Stats{}, errors.Wrap(err, "connect events")
		}
		defer func() { _ = closeFn() }()
		publisher = p
	}

	svc := product.NewService(postgres.NewProductRepository(pool), publisher, lg.Named("product"))
	return ingest.New(cfg, svc, lg).Run(ctx, feeds)
}
