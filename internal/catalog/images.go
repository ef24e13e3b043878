package catalog

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"listing-sync/internal/util"

	lru "github.com/hashicorp/golang-lru/v2"
)

const maxImageSize = 20 << 20

// ImageFetcher downloads cover images and keeps recent ones base64-encoded
type ImageFetcher struct {
	doer  Doer
	cache *lru.Cache[string, string]
}

// NewImageFetcher creates a fetcher caching up to cacheSize images
func NewImageFetcher(doer Doer, cacheSize int) (*ImageFetcher, error) {
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}
	return &ImageFetcher{doer: doer, cache: cache}, nil
}

// FetchBase64 downloads url and returns its content as base64
func (f *ImageFetcher) FetchBase64(ctx context.Context, url string) (string, error) {
	if encoded, ok := f.cache.Get(url); ok {
		util.CoverImageFetchTotal.WithLabelValues("cached").Inc()
		return encoded, nil
	}

	data, err := f.download(ctx, url)
	if err != nil {
		util.CoverImageFetchTotal.WithLabelValues("failed").Inc()
		return "", &ImageFetchError{URL: url, Err: err}
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	f.cache.Add(url, encoded)
	util.CoverImageFetchTotal.WithLabelValues("downloaded").Inc()
	return encoded, nil
}

func (f *ImageFetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image body")
	}
	return data, nil
}
