// Command coupon-ingest loads coupon definitions from gzip-compressed JSON
// Lines files into the database.
//
// Files are read in name order and a code seen twice keeps its first
// definition. Every kept record is upserted, so re-running an import is safe.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/storage/postgres"
)

func main() {
	var opts options
	var dataDir, databaseURL string

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz coupon files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&opts.workers, "workers", 8, "concurrent database writers")
	flag.UintVar(&opts.expected, "expected", 1_000_000, "expected number of distinct codes, sizes the duplicate filter")
	flag.BoolVar(&opts.strict, "strict", false, "fail on the first invalid record instead of skipping it")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		if databaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		files, err := inputFiles(dataDir, flag.Args())
		if err != nil {
			return err
		}
		lg.Info("Starting coupon ingest", zap.Strings("files", files), zap.Int("workers", opts.workers))

		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		st, err := ingest(ctx, lg, files, postgres.NewCouponRepository(pool), opts)
		if err != nil {
			return errors.Wrap(err, "ingest coupons")
		}
		lg.Info("Coupon ingest completed",
			zap.Int64("read", st.read),
			zap.Int64("written", st.written),
			zap.Int64("duplicates", st.duplicates),
			zap.Int64("invalid", st.invalid),
		)
		return nil
	})
}

// inputFiles returns args when given, otherwise every *.jsonl.gz file in dir.
func inputFiles(dir string, args []string) ([]string, error) {
	files := args
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(dir, "*.jsonl.gz"))
		if err != nil {
			return nil, errors.Wrap(err, "list input files")
		}
		files = matches
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no *.jsonl.gz files in %s", dir)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return nil, errors.Wrapf(err, "check file %s", f)
		}
	}
	return files, nil
}
