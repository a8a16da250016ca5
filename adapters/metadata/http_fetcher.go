// Package metadata fetches and validates off-chain agent registration documents.
package metadata

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clawcraft/gatekeeper/ports"
)

const (
	// DefaultIPFSGateway is used to resolve ipfs:// URIs
	DefaultIPFSGateway = "https://ipfs.io/ipfs/"

	// DefaultTimeout bounds a single document fetch
	DefaultTimeout = 10 * time.Second

	maxDocumentSize = 1 << 20
)

var (
	ErrUnsupportedScheme = errors.New("unsupported registration uri scheme")
	ErrBadStatus         = errors.New("unexpected response status")
	ErrTooLarge          = errors.New("registration document too large")
)

// HTTPFetcher implements ports.MetadataFetcher over HTTP(S), IPFS gateways and data: URIs
type HTTPFetcher struct {
	client  *http.Client
	gateway string
	timeout time.Duration
}

// NewHTTPFetcher creates a fetcher. An empty gateway selects DefaultIPFSGateway.
func NewHTTPFetcher(client *http.Client, gateway string, timeout time.Duration) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if gateway == "" {
		gateway = DefaultIPFSGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{client: client, gateway: gateway, timeout: timeout}
}

// Fetch returns the raw document referenced by uri
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	uri = strings.TrimSpace(uri)
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}

	target, err := f.ResolveURL(uri)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %d: %w", target, resp.StatusCode, ErrBadStatus)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	if len(body) > maxDocumentSize {
		return nil, ErrTooLarge
	}
	return body, nil
}

// ResolveURL maps a registration URI to the HTTP(S) URL it is fetched from
func (f *HTTPFetcher) ResolveURL(uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		path := strings.TrimPrefix(uri, "ipfs://")
		path = strings.TrimPrefix(path, "ipfs/")
		if path == "" {
			return "", fmt.Errorf("empty ipfs path: %w", ErrUnsupportedScheme)
		}
		return f.gateway + path, nil
	case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
		if _, err := url.Parse(uri); err != nil {
			return "", fmt.Errorf("invalid registration uri: %w", err)
		}
		return uri, nil
	default:
		return "", fmt.Errorf("%q: %w", uri, ErrUnsupportedScheme)
	}
}

// decodeDataURI handles data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri: %w", ErrUnsupportedScheme)
	}

	var body []byte
	if strings.HasSuffix(header, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed base64 data uri: %w", err)
		}
		body = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data uri: %w", err)
		}
		body = []byte(unescaped)
	}

	if len(body) > maxDocumentSize {
		return nil, ErrTooLarge
	}
	return body, nil
}

var _ ports.MetadataFetcher = (*HTTPFetcher)(nil)
