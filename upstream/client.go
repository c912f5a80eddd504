package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/catalog-api/internal/canon"
	"github.com/yourorg/catalog-api/internal/catalog"
)

// maxPayload guards against runaway responses; a full snapshot is a few MB.
const maxPayload = 32 << 20

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client reads the public listings endpoint of the listing service.
type Client struct {
	key     string
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 3
	rc.Logger = nil
	rc.HTTPClient.Timeout = cfg.Timeout
	if rc.HTTPClient.Timeout <= 0 {
		rc.HTTPClient.Timeout = 10 * time.Second
	}
	return &Client{key: cfg.APIKey, baseURL: cfg.BaseURL, http: rc}
}

func (c *Client) Name() string { return "http" }

// FetchRaw returns the listings payload as served, optionally narrowed to a city.
func (c *Client) FetchRaw(ctx context.Context, city string) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream base url: %w", err)
	}
	if city != "" {
		q := u.Query()
		q.Set("city", city)
		u.RawQuery = q.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	if c.key != "" {
		req.Header.Set("X-Api-Key", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("upstream error %d: %v", resp.StatusCode, body)
	}
	return ioReadAllLimit(resp.Body, maxPayload)
}

// FetchListings fetches, validates and maps the snapshot. Rows of other
// cities are dropped when city is set, whether or not the endpoint honoured
// the city parameter.
func (c *Client) FetchListings(ctx context.Context, city string) ([]catalog.Listing, error) {
	if catalog.IsAllCities(city) {
		city = ""
	}
	city = canon.Name(city)

	raw, err := c.FetchRaw(ctx, city)
	if err != nil {
		return nil, err
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	listings, err := MapListings(raw)
	if err != nil {
		return nil, err
	}
	if city == "" {
		return listings, nil
	}
	out := listings[:0]
	for _, l := range listings {
		if l.City == city {
			out = append(out, l)
		}
	}
	return out, nil
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
