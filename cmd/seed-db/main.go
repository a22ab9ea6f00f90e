package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/hospital-orders/internal/domain/offer"
	"github.com/xenking/hospital-orders/internal/domain/order"
	"github.com/xenking/hospital-orders/internal/storage/postgres"
)

type offerJSON struct {
	Code            string          `json:"code"`
	MinimumQuantity int             `json:"minimumQuantity"`
	DiscountRate    decimal.Decimal `json:"discountRate"`
	Description     string          `json:"description"`
	ValidFrom       *time.Time      `json:"validFrom"`
	ValidUntil      *time.Time      `json:"validUntil"`
	Active          bool            `json:"active"`
}

type orderJSON struct {
	Kind         order.Kind      `json:"kind"`
	Counterparty string          `json:"counterparty"`
	OfferCode    string          `json:"offerCode"`
	ShippingFee  decimal.Decimal `json:"shippingFee"`
	Lines        []struct {
		ProductID       string          `json:"productId"`
		ProductName     string          `json:"productName"`
		Quantity        int             `json:"quantity"`
		UnitPrice       decimal.Decimal `json:"unitPrice"`
		DiscountPercent decimal.Decimal `json:"discountPercent"`
	} `json:"lines"`
}

func main() {
	var (
		databaseURL string
		offersFile  string
		ordersFile  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&offersFile, "offers-file", "db/seed/offers.json", "path to offers JSON file")
	flag.StringVar(&ordersFile, "orders-file", "", "optional path to sample orders JSON file")
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

	if err := run(ctx, databaseURL, offersFile, ordersFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, offersFile, ordersFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	offers := postgres.NewOfferRepository(pool)
	if err := seedOffers(ctx, offers, offersFile); err != nil {
		return errors.Wrap(err, "seed offers")
	}

	if ordersFile == "" {
		return nil
	}
	svc := order.NewService(postgres.NewOrderRepository(pool), offer.NewRepoSelector(offers), order.DefaultTaxPolicy())
	if err := seedOrders(ctx, svc, ordersFile); err != nil {
		return errors.Wrap(err, "seed orders")
	}

	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}

func seedOffers(ctx context.Context, repo *postgres.OfferRepository, path string) error {
	slog.Info("reading offers file", slog.String("path", path))

	var rules []offerJSON
	if err := readJSON(path, &rules); err != nil {
		return err
	}

	slog.Info("upserting offers", slog.Int("count", len(rules)))

	for _, r := range rules {
		if err := repo.Upsert(ctx, offer.Rule{
			Code:            r.Code,
			MinimumQuantity: r.MinimumQuantity,
			DiscountRate:    r.DiscountRate,
			Description:     r.Description,
			ValidFrom:       r.ValidFrom,
			ValidUntil:      r.ValidUntil,
			Active:          r.Active,
		}); err != nil {
			return errors.Wrapf(err, "upsert offer %s", r.Code)
		}

		slog.Info("upserted offer", slog.String("code", r.Code), slog.String("description", r.Description))
	}

	return nil
}

func seedOrders(ctx context.Context, svc *order.Service, path string) error {
	slog.Info("reading orders file", slog.String("path", path))

	var orders []orderJSON
	if err := readJSON(path, &orders); err != nil {
		return err
	}

	for i, o := range orders {
		lines := make([]order.LineInput, len(o.Lines))
		for j, l := range o.Lines {
			lines[j] = order.LineInput{
				ProductID:       l.ProductID,
				ProductName:     l.ProductName,
				Quantity:        l.Quantity,
				UnitPrice:       l.UnitPrice,
				DiscountPercent: l.DiscountPercent,
			}
		}

		created, err := svc.Create(ctx, order.CreateRequest{
			Kind:         o.Kind,
			Counterparty: o.Counterparty,
			Lines:        lines,
			OfferCode:    o.OfferCode,
			ShippingFee:  o.ShippingFee,
		})
		if err != nil {
			return errors.Wrapf(err, "create order %d", i)
		}

		slog.Info("created order",
			slog.String("number", created.Number),
			slog.String("kind", string(created.Kind)),
			slog.String("total", created.Totals.Total.StringFixed(2)),
		)
	}

	return nil
}
