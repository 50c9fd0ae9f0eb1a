package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ParseDocumentURL accepts absolute http(s) URLs with a host and rejects
// everything else with ErrInvalidURL.
func ParseDocumentURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, WrapError(ErrInvalidURL, "parse url", errors.New("empty url"))
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, WrapError(ErrInvalidURL, "parse url", err)
	}
	if !parsed.IsAbs() {
		return nil, WrapError(ErrInvalidURL, "parse url", fmt.Errorf("%q is not absolute", raw))
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return nil, WrapError(ErrInvalidURL, "parse url", fmt.Errorf("unsupported scheme %q", parsed.Scheme))
	}
	if parsed.Hostname() == "" {
		return nil, WrapError(ErrInvalidURL, "parse url", fmt.Errorf("%q has no host", raw))
	}
	return parsed, nil
}
