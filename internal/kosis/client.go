package kosis

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://kosis.kr/openapi"

const (
	listEndpoint = "/statisticsList.do"
	dataEndpoint = "/statisticsData.do"
)

// requestTimeout is fixed and applied uniformly to every call.
const requestTimeout = 30 * time.Second

// Client talks to the KOSIS open API. It performs no retries: every failure
// is surfaced to the caller as a tagged *APIError.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient builds a client bound to the KOSIS base URL, the fixed request
// timeout and the default query parameters. An empty apiKey is a
// *ConfigurationError.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &ConfigurationError{Msg: "api key is required"}
	}

	client := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		userAgent:  "kosis-agent/0.1",
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// defaultQuery carries the credential and the fixed response format on every
// request.
func (c *Client) defaultQuery() map[string]string {
	return map[string]string{
		"apiKey": c.apiKey,
		"format": "json",
		"jsonVD": "Y",
	}
}

// mergeQuery builds the final query in two stages: base first, then overlay.
// Keys present in the overlay always win.
func mergeQuery(base map[string]string, overlays ...map[string]string) url.Values {
	merged := make(map[string]string, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for _, overlay := range overlays {
		for k, v := range overlay {
			merged[k] = v
		}
	}

	values := url.Values{}
	for k, v := range merged {
		values.Set(k, v)
	}
	return values
}

func (c *Client) get(ctx context.Context, op, tableID, endpoint string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.baseURL, "/")+endpoint, nil)
	if err != nil {
		return nil, &APIError{Op: op, TableID: tableID, Kind: KindRequestFailed, Message: err.Error(), Err: err}
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Op: op, TableID: tableID, Kind: KindNoResponse, Message: "no response", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Op: op, TableID: tableID, Kind: KindNoResponse, Message: "no response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Op:         op,
			TableID:    tableID,
			Kind:       KindHTTPError,
			StatusCode: resp.StatusCode,
			Message:    providerMessage(body, resp.Status),
		}
	}

	return body, nil
}
