package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/hospital-orders/internal/domain/order"
)

const (
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// receipt is one receiving-desk log record.
type receipt struct {
	orderID string
	count   order.Count
}

// parseRecord parses "order_id,line,received,damaged,missing". Blank lines,
// comments and the header yield ok=false without an error.
func parseRecord(text string) (r receipt, ok bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "order_id,") {
		return receipt{}, false, nil
	}

	fields := strings.Split(text, ",")
	if len(fields) != 5 {
		return receipt{}, false, errors.Errorf("want 5 fields, got %d", len(fields))
	}

	r.orderID = strings.TrimSpace(fields[0])
	if r.orderID == "" {
		return receipt{}, false, errors.New("empty order id")
	}

	nums := make([]int, 4)
	for i, f := range fields[1:] {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return receipt{}, false, errors.Wrapf(err, "field %d", i+2)
		}
		nums[i] = n
	}
	r.count = order.Count{Line: nums[0], Received: nums[1], Damaged: nums[2], Missing: nums[3]}
	return r, true, nil
}

// newKnownOrders builds a bloom filter over the given order ids.
func newKnownOrders(ids []string) *bloom.BloomFilter {
	n := uint(len(ids))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, bloomFPR)
	for _, id := range ids {
		filter.AddString(id)
	}
	return filter
}

// fileStats summarizes one scanned file.
type fileStats struct {
	records   uint64
	unknown   uint64
	malformed uint64
}

// collect reads receipts from r and groups the ones whose order id may be
// known by order id, keeping log order. Malformed records are skipped.
func collect(ctx context.Context, name string, r io.Reader, known *bloom.BloomFilter) (map[string][]order.Count, fileStats, error) {
	var (
		stats  fileStats
		counts = make(map[string][]order.Count)
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		lineNo++

		rec, ok, err := parseRecord(scanner.Text())
		if err != nil {
			stats.malformed++
			slog.Warn("skipping malformed record",
				slog.String("file", name),
				slog.Int("line", lineNo),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			continue
		}

		stats.records++
		if stats.records%progressEvery == 0 {
			slog.Info("scan progress", slog.String("file", name), slog.Uint64("records", stats.records))
		}
		if !known.TestString(rec.orderID) {
			stats.unknown++
			continue
		}
		counts[rec.orderID] = append(counts[rec.orderID], rec.count)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, errors.Wrapf(err, "scan %s", name)
	}

	return counts, stats, nil
}

// collectGzFile streams a gzip-compressed receipt log through collect.
func collectGzFile(ctx context.Context, path string, known *bloom.BloomFilter) (map[string][]order.Count, fileStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fileStats{}, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, fileStats{}, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return collect(ctx, path, gz, known)
}
