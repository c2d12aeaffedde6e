package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"sync/atomic"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/coupon"
)

const (
	progressEvery = 10_000
	maxLineBytes  = 1 << 20
)

type options struct {
	workers  int
	expected uint
	strict   bool
}

// store persists coupon definitions.
type store interface {
	Upsert(ctx context.Context, c *coupon.Coupon) error
}

type stats struct {
	read       int64
	written    int64
	duplicates int64
	invalid    int64
}

// ingest streams files in order, drops repeated codes and hands the rest to
// opts.workers concurrent writers.
func ingest(ctx context.Context, lg *zap.Logger, files []string, st store, opts options) (stats, error) {
	if opts.workers <= 0 {
		opts.workers = 1
	}
	var (
		res     stats
		written atomic.Int64
		records = make(chan *coupon.Coupon, opts.workers*4)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(records)
		seen := newDedupe(opts.expected)
		for _, path := range files {
			err := streamFile(ctx, path, func(line int, data []byte) error {
				res.read++
				c, err := decodeCoupon(data)
				if err == nil {
					err = c.Validate()
				}
				if err != nil {
					if opts.strict {
						return errors.Wrapf(err, "%s:%d", path, line)
					}
					res.invalid++
					lg.Warn("Skipping invalid coupon",
						zap.String("file", path),
						zap.Int("line", line),
						zap.Error(err),
					)
					return nil
				}
				if !seen.add(c.Code) {
					res.duplicates++
					lg.Debug("Skipping duplicate coupon",
						zap.String("coupon_code", c.Code),
						zap.String("file", path),
						zap.Int("line", line),
					)
					return nil
				}
				select {
				case records <- c:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				return err
			}
			lg.Info("File read", zap.String("file", path), zap.Int64("records", res.read))
		}
		return nil
	})

	for range opts.workers {
		g.Go(func() error {
			for c := range records {
				if err := st.Upsert(ctx, c); err != nil {
					return errors.Wrapf(err, "upsert %s", c.Code)
				}
				if n := written.Add(1); n%progressEvery == 0 {
					lg.Info("Write progress", zap.Int64("written", n))
				}
			}
			return nil
		})
	}

	err := g.Wait()
	res.written = written.Load()
	return res, err
}

// streamFile calls fn with every non-blank line of the gzip file at path.
// Line numbers start at 1.
func streamFile(ctx context.Context, path string, fn func(line int, data []byte) error) error {
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

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		if err := fn(line, data); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
