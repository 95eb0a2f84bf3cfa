package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ImageFetcher loads an image referenced by URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads images over HTTP(S).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

// CachedFetcher keeps fetched images in Redis. Cache errors are logged and
// fall through to the wrapped fetcher.
type CachedFetcher struct {
	next   ImageFetcher
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedFetcher(next ImageFetcher, rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedFetcher {
	return &CachedFetcher{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(url string) string {
	return "clinicaldocs:image:" + url
}

func (f *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, err := f.rdb.Get(ctx, cacheKey(url)).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		f.logger.Warn().Err(err).Str("url", url).Msg("image cache read failed")
	}

	data, err = f.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := f.rdb.Set(ctx, cacheKey(url), data, f.ttl).Err(); err != nil {
		f.logger.Warn().Err(err).Str("url", url).Msg("image cache write failed")
	}
	return data, nil
}

// sniffImage returns the embeddable image for data, or nil when the format is
// not one the PDF writer accepts.
func sniffImage(data []byte) *Image {
	if len(data) == 0 {
		return nil
	}
	switch http.DetectContentType(data) {
	case "image/png":
		return &Image{Data: data, Type: "PNG"}
	case "image/jpeg":
		return &Image{Data: data, Type: "JPG"}
	default:
		return nil
	}
}
