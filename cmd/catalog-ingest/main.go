// Binary catalog-ingest imports wholesale supplier price feeds into the
// medicine catalog.
//
// Each supplier publishes a gzip-compressed CSV export, potentially with
// hundreds of millions of rows and heavy duplication. Feeds are parsed
// concurrently; a per-feed bloom filter suppresses repeated SKUs without
// holding every seen SKU in memory, and when suppliers disagree the feed
// earliest in lexical filename order wins.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/lianamed/pharmacy-api/internal/domain/medicine"
	"github.com/lianamed/pharmacy-api/internal/repository"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
)

// feedRow is one validated line of a supplier feed.
// CSV layout: sku,name,category,description,price,stock,image,requires_prescription
type feedRow struct {
	med medicine.Medicine
}

// feedResult holds the deduplicated rows of one feed.
type feedResult struct {
	rows map[string]feedRow
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing supplier *.csv.gz feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	feeds, err := filepath.Glob(filepath.Join(dataDir, "*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feeds")
	}
	if len(feeds) == 0 {
		return errors.Errorf("no *.csv.gz feeds in %s", dataDir)
	}
	// Priority order: earlier filename wins on conflicting SKUs.
	sort.Strings(feeds)

	slog.Info("parsing supplier feeds", slog.Int("feeds", len(feeds)))

	results := make([]feedResult, len(feeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, feed := range feeds {
		g.Go(parseFeed(gctx, i, feed, results))
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	merged := mergeFeeds(results)
	slog.Info("feeds merged", slog.Int("medicines", len(merged)))
	if len(merged) == 0 {
		slog.Info("nothing to ingest")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeCatalog(ctx, repository.NewMedicineRepository(pool), merged)
}

// parseFeed streams one gzipped CSV feed, keeping the first occurrence of
// each SKU. The bloom filter answers "seen before?" cheaply; on a positive
// it double-checks the row map, so a false positive can never drop a SKU
// that was genuinely new.
func parseFeed(ctx context.Context, idx int, path string, results []feedResult) func() error {
	return func() error {
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		rows := make(map[string]feedRow)
		var total, skipped uint64

		err := streamCSV(ctx, path, func(record []string) {
			total++
			if total%progressEvery == 0 {
				slog.Info("feed progress",
					slog.Int("feed", idx+1),
					slog.Uint64("rows", total),
				)
			}

			row, err := parseRow(record)
			if err != nil {
				skipped++
				return
			}
			if seen.TestAndAddString(row.med.ID) {
				if _, dup := rows[row.med.ID]; dup {
					return
				}
			}
			rows[row.med.ID] = row
		})
		if err != nil {
			return errors.Wrapf(err, "parse feed %s", path)
		}

		slog.Info("feed parsed",
			slog.Int("feed", idx+1),
			slog.String("path", path),
			slog.Uint64("rows", total),
			slog.Uint64("skipped", skipped),
			slog.Int("medicines", len(rows)),
		)
		results[idx] = feedResult{rows: rows}
		return nil
	}
}

// mergeFeeds combines per-feed rows, first feed winning per SKU.
func mergeFeeds(results []feedResult) map[string]feedRow {
	merged := make(map[string]feedRow)
	for _, r := range results {
		for sku, row := range r.rows {
			if _, taken := merged[sku]; !taken {
				merged[sku] = row
			}
		}
	}
	return merged
}

func parseRow(record []string) (feedRow, error) {
	if len(record) != 8 {
		return feedRow{}, errors.Errorf("want 8 fields, got %d", len(record))
	}

	sku := strings.TrimSpace(record[0])
	name := strings.TrimSpace(record[1])
	if sku == "" || name == "" {
		return feedRow{}, errors.New("empty sku or name")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil || price.IsNegative() {
		return feedRow{}, errors.Errorf("bad price %q", record[4])
	}
	stock, err := strconv.Atoi(strings.TrimSpace(record[5]))
	if err != nil || stock < 0 {
		return feedRow{}, errors.Errorf("bad stock %q", record[5])
	}
	rx, err := strconv.ParseBool(strings.TrimSpace(record[7]))
	if err != nil {
		return feedRow{}, errors.Errorf("bad requires_prescription %q", record[7])
	}

	return feedRow{med: medicine.Medicine{
		ID:                   sku,
		Name:                 name,
		Category:             strings.TrimSpace(record[2]),
		Description:          strings.TrimSpace(record[3]),
		Price:                price,
		Stock:                stock,
		ImageRef:             strings.TrimSpace(record[6]),
		RequiresPrescription: rx,
	}}, nil
}

// streamCSV opens a gzip-compressed CSV file and calls fn for each record,
// skipping the header line.
func streamCSV(ctx context.Context, path string, fn func(record []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1

	header := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if header {
			header = false
			continue
		}
		fn(record)
	}
}

// writeCatalog upserts the merged rows.
func writeCatalog(ctx context.Context, repo *repository.MedicineRepository, merged map[string]feedRow) error {
	slog.Info("writing catalog", slog.Int("count", len(merged)))

	skus := make([]string, 0, len(merged))
	for sku := range merged {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	for i, sku := range skus {
		row := merged[sku]
		if err := repo.Upsert(ctx, &row.med); err != nil {
			return errors.Wrapf(err, "upsert medicine %s", sku)
		}
		if (i+1)%100 == 0 || i+1 == len(skus) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(skus)))
		}
	}
	return nil
}
