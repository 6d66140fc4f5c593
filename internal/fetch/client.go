package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion when watching many pages
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the result of fetching a tracked page with [Client].
//
// The body is limited to 1MB; shop pages past that point are of no use for
// a substring match anyway.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	StatusCode int

	// ContentType is the media type of the response, without parameters.
	ContentType string

	// Latency is the total time taken for the request.
	Latency time.Duration
}

// Client is an HTTP client wrapper for fetching tracked pages.
//
// Every fetch runs under a fixed timeout applied via context, so a hung
// server fails the request rather than stalling the poll cycle. Responses
// whose Content-Type is not a textual media type are rejected, since the
// stock marker can only be matched against text.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a fetching [Client] with the given per-request timeout.
//
// The client is configured with connection pooling limits so that watching
// many pages on the same host reuses connections instead of exhausting them.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		timeout: timeout,
		httpClient: &http.Client{
			// no default timeout - the per-request context carries it
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false,
			},
		},
	}
}

// Timeout returns the per-request timeout the client was created with.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Fetch performs an HTTP GET of url and returns a structured [Response].
//
// The request runs under the client's fixed timeout. An error is returned
// for network failures, timeouts, and responses whose Content-Type is not
// textual; the caller decides how far such errors propagate.
func (c *Client) Fetch(ctx context.Context, url string) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	mediaType := contentType
	if contentType != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = parsed
		}
	}
	if !isTextual(mediaType) {
		return Response{}, fmt.Errorf("response is not text (content type %q)", mediaType)
	}

	limitedReader := io.LimitReader(resp.Body, maxResponseBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response body: %w", err)
	}

	return Response{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: mediaType,
		Latency:     time.Since(start),
	}, nil
}

// isTextual reports whether a media type can be matched against a text
// marker. An empty media type is treated as textual, matching servers that
// omit the header on plain pages.
func isTextual(mediaType string) bool {
	switch {
	case mediaType == "":
		return true
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case strings.HasSuffix(mediaType, "+xml"), strings.HasSuffix(mediaType, "+json"):
		return true
	}
	switch mediaType {
	case "application/json", "application/xml", "application/xhtml+xml":
		return true
	}
	return false
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close the client remains usable;
// new connections are established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
