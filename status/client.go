package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skyezerfox/moss/constants"
	"github.com/skyezerfox/moss/models"
)

var (
	// ErrTransport wraps network failures talking to the status API.
	ErrTransport = errors.New("transport error")
	// ErrDecode wraps malformed status documents.
	ErrDecode = errors.New("decode error")
)

// HTTPError is returned for any non-2xx response from the status API.
type HTTPError struct {
	Address    string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server %s not found (%s)", e.Address, e.Status)
}

// Fetcher retrieves the status document for one server address.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (*models.ServerStatus, error)
}

// Client talks to the mcstatus.io compatible status API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a status API client. timeout bounds each request; zero
// means no client side timeout.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return NewClientWithHTTPClient(baseURL, userAgent, &http.Client{Timeout: timeout})
}

// NewClientWithHTTPClient creates a status API client with a custom HTTP client.
func NewClientWithHTTPClient(baseURL, userAgent string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// URL returns the status endpoint for address.
func (c *Client) URL(address string) string {
	return c.baseURL + constants.StatusAPIPath + models.EscapeComponent(address)
}

// Fetch performs GET /v2/status/bedrock/{address} and decodes the document.
func (c *Client) Fetch(ctx context.Context, address string) (*models.ServerStatus, error) {
	url := c.URL(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{
			Address:    address,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var doc models.ServerStatus
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &doc, nil
}
