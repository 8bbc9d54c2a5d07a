package pass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxImageSize caps the size of a fetched event image
const DefaultMaxImageSize = 5 << 20

// ImageFetcher downloads event images
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPImageFetcher fetches images over http(s), and from file:// URLs
// when built with allowFile
type HTTPImageFetcher struct {
	client    *http.Client
	maxSize   int64
	allowFile bool
}

// NewHTTPImageFetcher returns a fetcher bounded by timeout. A zero
// timeout defaults to ten seconds.
func NewHTTPImageFetcher(timeout time.Duration, allowFile bool) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &http.Client{Timeout: timeout}
	if allowFile {
		t := &http.Transport{}
		t.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
		c.Transport = t
	}
	return &HTTPImageFetcher{client: c, maxSize: DefaultMaxImageSize, allowFile: allowFile}
}

// Fetch downloads the image at rawURL
func (f *HTTPImageFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("pass: failed to parse image url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "file":
		if !f.allowFile {
			return nil, fmt.Errorf("pass: file image urls are disabled")
		}
	default:
		return nil, fmt.Errorf("pass: unsupported image url scheme %q", u.Scheme)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("pass: failed to create image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pass: failed to fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pass: failed to fetch image from %s: %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("pass: failed to read image body: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("pass: image at %s exceeds %d bytes", rawURL, f.maxSize)
	}
	return data, nil
}
