// util/fetch.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/airportinfo/aptdb/log"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/zstd"
)

// IsURL reports whether the given input location should be fetched over
// HTTP rather than opened as a local file.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetch retrieves the body at url, retrying transient failures. Only a
// 200 response is considered success.
func Fetch(ctx context.Context, url string, lg *log.Logger) ([]byte, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = 4
	client.RetryWaitMin = time.Second
	client.HTTPClient.Timeout = 2 * time.Minute
	client.Logger = nil // retryablehttp's default logger writes to stderr
	if lg != nil {
		client.Logger = lg
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", url, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// OpenInput opens a local file (decompressing .zst transparently) or
// fetches a URL, returning a reader over its contents.
func OpenInput(ctx context.Context, loc string, lg *log.Logger) (io.ReadCloser, error) {
	if !IsURL(loc) {
		return OpenFile(loc)
	}

	b, err := Fetch(ctx, loc, lg)
	if err != nil {
		return nil, err
	}
	if IsCompressed(loc) {
		zr, err := zstd.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}
