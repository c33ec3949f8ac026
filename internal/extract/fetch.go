// Package extract fetches earnings release pages and pulls structured
// financial facts out of them.
package extract

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

// minContentBytes is the smallest plausible earnings page. Anything below
// is treated as a bot-detection shell.
const minContentBytes = 500

// FetchOptions configures the page fetcher.
type FetchOptions struct {
	UserAgent      string
	Timeout        time.Duration
	MaxBodyBytes   int64
	RequestsPerSec float64
}

// Fetcher retrieves earnings pages over plain HTTP. Investor-relations
// sites are quick to block scrapers, so it sends a desktop user agent,
// paces requests, and inspects responses for block walls.
type Fetcher struct {
	client  *http.Client
	opts    FetchOptions
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher with sensible defaults.
func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 4 * 1024 * 1024
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 1
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
	}
}

// Fetch retrieves a URL and returns the page HTML as UTF-8. It fails on
// HTTP errors, detected block walls, and suspiciously small bodies.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: get %s", rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("fetch: blocked by %s protection", kind)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("fetch: status %d from %s", resp.StatusCode, rawURL)
	}

	body = decodeCharset(resp.Header.Get("Content-Type"), body)

	if len(body) < minContentBytes {
		return nil, eris.Errorf("fetch: page returned minimal content (%d bytes), possible bot detection", len(body))
	}

	zap.L().Debug("extract: page fetched",
		zap.String("url", rawURL),
		zap.Int("bytes", len(body)),
		zap.Int("status", resp.StatusCode))

	return body, nil
}

// decodeCharset converts a body to UTF-8 when the Content-Type header
// declares a different encoding. Undeclared or unknown charsets pass
// through unchanged.
func decodeCharset(contentType string, body []byte) []byte {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	cs := params["charset"]
	if cs == "" || strings.EqualFold(cs, "utf-8") {
		return body
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		zap.L().Debug("extract: unsupported charset", zap.String("charset", cs))
		return body
	}
	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return body
	}
	return decoded
}
