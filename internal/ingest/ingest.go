// Package ingest bulk-imports product submission feeds.
//
// A feed is a gzip-compressed file of JSON lines, one create-product object
// per line. Products are de-duplicated by product URL across all feeds, the
// first valid occurrence in feed order wins. Bloom filters keep memory flat:
// only URLs the filters flag as possibly repeated are tracked exactly.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/wire"
)

const (
	DefaultCapacity = 10_000_000
	DefaultFPR      = 0.001
	progressEvery   = 1_000_000
	maxLineSize     = 1 << 20
)

// Creator stores a validated submission, e.g. *product.Service.
type Creator interface {
	Create(ctx context.Context, in product.Input) (*product.Product, error)
}

// Config tunes the importer.
type Config struct {
	// Capacity is the expected number of records per feed.
	Capacity uint
	// FPR is the bloom filter false positive rate.
	FPR float64
	// DryRun reports what would be created without calling the Creator.
	DryRun bool
}

// Stats summarizes an import.
type Stats struct {
	Read       int
	Malformed  int
	Invalid    int
	Duplicates int
	Created    int
	// Candidates is the number of URLs tracked exactly.
	Candidates int
}

// Importer runs the three passes over a fixed list of feeds.
type Importer struct {
	cfg     Config
	creator Creator
	lg      *zap.Logger
}

// New returns an Importer. Zero Config fields take defaults.
func New(cfg Config, creator Creator, lg *zap.Logger) *Importer {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.FPR <= 0 {
		cfg.FPR = DefaultFPR
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Importer{cfg: cfg, creator: creator, lg: lg}
}

// Run imports feeds in order.
//
// Pass 1 builds one filter per feed concurrently; a URL already in its own
// feed's filter is a candidate. Pass 2 checks each feed against the filters
// of earlier feeds, again concurrently. Pass 3 streams the feeds in order and
// creates every valid record whose URL is not a candidate seen before.
func (im *Importer) Run(ctx context.Context, feeds []string) (Stats, error) {
	var stats Stats
	if len(feeds) == 0 {
		return stats, errors.New("no feeds given")
	}
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return stats, errors.Wrapf(err, "check feed %s", f)
		}
	}

	im.lg.Info("Pass 1: building bloom filters", zap.Int("feeds", len(feeds)))
	filters, candidates, err := im.buildFilters(ctx, feeds)
	if err != nil {
		return stats, errors.Wrap(err, "build filters")
	}

	im.lg.Info("Pass 2: cross-feed candidates")
	if err := im.crossCheck(ctx, feeds, filters, candidates); err != nil {
		return stats, errors.Wrap(err, "cross check")
	}
	stats.Candidates = candidates.len()
	im.lg.Info("Candidates found", zap.Int("count", stats.Candidates))

	im.lg.Info("Pass 3: importing", zap.Bool("dry_run", im.cfg.DryRun))
	if err := im.load(ctx, feeds, candidates.urls, &stats); err != nil {
		return stats, errors.Wrap(err, "import")
	}
	return stats, nil
}

// candidateSet is shared by the concurrent passes.
type candidateSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

func (c *candidateSet) merge(urls map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for u := range urls {
		c.urls[u] = struct{}{}
	}
}

func (c *candidateSet) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.urls)
}

func (im *Importer) buildFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, *candidateSet, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))
	candidates := &candidateSet{urls: make(map[string]struct{})}

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.cfg.Capacity, im.cfg.FPR)
			local := make(map[string]struct{})
			var n int

			err := streamFeed(ctx, path, func(in product.Input, err error) {
				if err != nil {
					return
				}
				key := URLKey(in.ProductURL)
				if key == "" {
					return
				}
				if filter.TestAndAddString(key) {
					local[key] = struct{}{}
				}
				if n++; n%progressEvery == 0 {
					im.lg.Info("Pass 1 progress", zap.Int("feed", i+1), zap.Int("records", n))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "feed %d", i+1)
			}

			filters[i] = filter
			candidates.merge(local)
			im.lg.Info("Pass 1 complete", zap.Int("feed", i+1), zap.Int("records", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return filters, candidates, nil
}

func (im *Importer) crossCheck(ctx context.Context, feeds []string, filters []*bloom.BloomFilter, candidates *candidateSet) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds[1:] {
		idx := i + 1
		g.Go(func() error {
			local := make(map[string]struct{})
			err := streamFeed(ctx, path, func(in product.Input, err error) {
				if err != nil {
					return
				}
				key := URLKey(in.ProductURL)
				if key == "" {
					return
				}
				for _, f := range filters[:idx] {
					if f.TestString(key) {
						local[key] = struct{}{}
						return
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "feed %d", idx+1)
			}
			candidates.merge(local)
			return nil
		})
	}
	return g.Wait()
}

func (im *Importer) load(ctx context.Context, feeds []string, candidates map[string]struct{}, stats *Stats) error {
	seen := make(map[string]struct{})
	for i, path := range feeds {
		var createErr error
		err := streamFeed(ctx, path, func(in product.Input, err error) {
			if createErr != nil {
				return
			}
			stats.Read++
			if err != nil {
				stats.Malformed++
				return
			}
			in, err = in.Normalize()
			if err != nil {
				stats.Invalid++
				im.lg.Debug("Invalid record", zap.Int("feed", i+1), zap.Error(err))
				return
			}

			key := URLKey(in.ProductURL)
			if _, ok := candidates[key]; ok {
				if _, dup := seen[key]; dup {
					stats.Duplicates++
					return
				}
				seen[key] = struct{}{}
			}

			if !im.cfg.DryRun {
				if _, err := im.creator.Create(ctx, in); err != nil {
					createErr = errors.Wrapf(err, "create %q", in.ProductURL)
					return
				}
			}
			if stats.Created++; stats.Created%progressEvery == 0 {
				im.lg.Info("Pass 3 progress", zap.Int("created", stats.Created))
			}
		})
		if err == nil {
			err = createErr
		}
		if err != nil {
			return errors.Wrapf(err, "feed %d", i+1)
		}
		im.lg.Info("Feed imported", zap.Int("feed", i+1), zap.Int("created_total", stats.Created))
	}
	return nil
}

// URLKey normalizes a product URL for duplicate detection: the scheme and
// host are lower-cased, the fragment and a trailing slash are dropped.
func URLKey(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// streamFeed calls fn for every non-blank line of a gzip JSON-lines feed.
// Lines that do not decode are passed with their error.
func streamFeed(ctx context.Context, path string, fn func(in product.Input, err error)) error {
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
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		fn(wire.DecodeInput(jx.DecodeBytes(line)))
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
