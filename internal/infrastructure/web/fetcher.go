package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

const (
	DefaultUserAgent = "readshelf/1.0 (+https://github.com/kirillkom/readshelf)"
	maxRedirects     = 5
)

// Fetcher performs a single GET per call. It never retries; callers own the
// retry policy.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch returns the response body of a successful GET. Non-2xx statuses yield
// *domain.FetchError; transport failures are wrapped with domain.ErrNetwork.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidURL, "create fetch request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", domain.WrapError(domain.ErrNetwork, "fetch "+pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &domain.FetchError{URL: pageURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var reader io.Reader = resp.Body
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", domain.WrapError(domain.ErrNetwork, "read body "+pageURL, err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return "", domain.WrapError(domain.ErrNetwork, "read body "+pageURL, fmt.Errorf("content too large (exceeds %d bytes)", f.maxBytes))
	}
	return decodeBody(body, resp.Header.Get("Content-Type")), nil
}

// decodeBody converts body to UTF-8 from the charset named by the
// Content-Type header, a byte order mark or a <meta> declaration. A body that
// is already valid UTF-8 is kept when no declaration is certain. The result
// never holds invalid sequences or NUL bytes, both rejected by Postgres TEXT.
func decodeBody(body []byte, contentType string) string {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name != "utf-8" && (certain || !utf8.Valid(body)) {
		if decoded, err := enc.NewDecoder().Bytes(body); err == nil {
			body = decoded
		}
	}
	text := strings.ToValidUTF8(string(body), "\uFFFD")
	return strings.ReplaceAll(text, "\x00", "\uFFFD")
}
