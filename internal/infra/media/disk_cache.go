package media

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"maipocket-quiz/internal/app"
)

const defaultParallelism = 4

// DiskCache downloads question media into a directory so it plays without a network stall.
// Files are named by the xxh3 hash of their URL; a file that exists is a cache hit.
type DiskCache struct {
	dir         string
	http        *req.Client
	parallelism int
	sf          singleflight.Group
}

var _ app.MediaCache = (*DiskCache)(nil)

func NewDiskCache(dir string, timeout time.Duration, parallelism int) (*DiskCache, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "maipocket-media")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create media dir %s", dir)
	}
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &DiskCache{
		dir:         dir,
		http:        req.C().SetTimeout(timeout),
		parallelism: parallelism,
	}, nil
}

// Path returns where rawURL is cached.
func (c *DiskCache) Path(rawURL string) string {
	name := strconv.FormatUint(xxh3.HashString(rawURL), 16)
	if u, err := url.Parse(rawURL); err == nil {
		name += path.Ext(u.Path)
	}
	return filepath.Join(c.dir, name)
}

// Warm downloads every URL with bounded parallelism. Statuses arrive in completion
// order; a failed URL is reported not ready and the batch carries on.
func (c *DiskCache) Warm(ctx context.Context, urls []string) <-chan app.MediaStatus {
	out := make(chan app.MediaStatus, len(urls))
	go func() {
		defer close(out)

		var (
			g    errgroup.Group
			mu   sync.Mutex
			errs *multierror.Error
		)
		g.SetLimit(c.parallelism)
		for _, u := range urls {
			u := u
			g.Go(func() error {
				err := c.fetch(ctx, u)
				if err != nil {
					mu.Lock()
					errs = multierror.Append(errs, err)
					mu.Unlock()
				}
				out <- app.MediaStatus{URL: u, Ready: err == nil}
				return nil
			})
		}
		_ = g.Wait()
		if err := errs.ErrorOrNil(); err != nil {
			log.Printf("media warm: %d of %d failed: %v", len(errs.Errors), len(urls), err)
		}
	}()
	return out
}

func (c *DiskCache) fetch(ctx context.Context, rawURL string) error {
	dst := c.Path(rawURL)
	if cached(dst) {
		return nil
	}
	_, err, _ := c.sf.Do(dst, func() (interface{}, error) {
		if cached(dst) {
			return nil, nil
		}
		return nil, c.download(ctx, rawURL, dst)
	})
	return err
}

func (c *DiskCache) download(ctx context.Context, rawURL, dst string) error {
	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpName)

	resp, err := c.http.R().SetContext(ctx).SetOutputFile(tmpName).Get(rawURL)
	if err != nil {
		return errors.Wrapf(err, "download %s", rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}
	return errors.Wrapf(os.Rename(tmpName, dst), "store %s", rawURL)
}

func cached(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Size() > 0
}
