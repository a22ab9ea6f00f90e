package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/hospital-orders/internal/domain/offer"
	"github.com/xenking/hospital-orders/internal/domain/order"
	"github.com/xenking/hospital-orders/internal/domain/validation"
	"github.com/xenking/hospital-orders/internal/storage/postgres"
)

// receiver applies receiving-desk counts to an order.
type receiver interface {
	Receive(ctx context.Context, id string, counts []order.Count) (*order.Order, error)
}

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		workers     int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing gzip receipt logs")
	flag.StringVar(&pattern, "pattern", "receipts-*.csv.gz", "glob of receipt logs inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 8, "orders updated concurrently")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, databaseURL, workers); err != nil {
		slog.Error("receipt ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("receipt ingest completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string, workers int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "glob receipt logs")
	}
	if len(files) == 0 {
		slog.Info("no receipt logs found", slog.String("dir", dataDir), slog.String("pattern", pattern))
		return nil
	}
	sort.Strings(files)

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	orderRepo := postgres.NewOrderRepository(pool)
	ids, err := orderRepo.IDs(ctx)
	if err != nil {
		return errors.Wrap(err, "load order ids")
	}
	slog.Info("indexed known orders", slog.Int("count", len(ids)))

	counts, err := scanFiles(ctx, files, newKnownOrders(ids))
	if err != nil {
		return errors.Wrap(err, "scan receipt logs")
	}

	svc := order.NewService(orderRepo, offer.NewRepoSelector(postgres.NewOfferRepository(pool)), order.DefaultTaxPolicy())
	return apply(ctx, svc, counts, workers)
}

// scanFiles reads every log concurrently and merges the grouped counts in
// file order, so a later file's count for the same line wins.
func scanFiles(ctx context.Context, files []string, known *bloom.BloomFilter) (map[string][]order.Count, error) {
	results := make([]map[string][]order.Count, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			counts, stats, err := collectGzFile(ctx, path, known)
			if err != nil {
				return err
			}
			slog.Info("scan complete",
				slog.String("file", path),
				slog.Uint64("records", stats.records),
				slog.Uint64("unknown_orders", stats.unknown),
				slog.Uint64("malformed", stats.malformed),
			)
			results[i] = counts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string][]order.Count)
	for _, r := range results {
		for id, c := range r {
			merged[id] = append(merged[id], c...)
		}
	}
	return merged, nil
}

// apply records the counts order by order. Orders that no longer exist or
// whose counts are rejected are logged and skipped; other errors abort.
func apply(ctx context.Context, svc receiver, counts map[string][]order.Count, workers int) error {
	var applied, skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for id, c := range counts {
		g.Go(func() error {
			o, err := svc.Receive(ctx, id, c)
			var inErr *validation.InvalidInputError
			switch {
			case errors.Is(err, order.ErrNotFound):
				skipped.Add(1)
				slog.Warn("skipping unknown order", slog.String("order_id", id))
				return nil
			case errors.As(err, &inErr):
				skipped.Add(1)
				slog.Warn("skipping rejected counts",
					slog.String("order_id", id),
					slog.String("error", inErr.Error()),
				)
				return nil
			case err != nil:
				return errors.Wrapf(err, "receive order %s", id)
			}

			applied.Add(1)
			slog.Debug("recorded receipt",
				slog.String("order", o.Number),
				slog.String("status", o.FulfillmentStatus.String()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("receipts applied", slog.Int64("orders", applied.Load()), slog.Int64("skipped", skipped.Load()))
	return nil
}
