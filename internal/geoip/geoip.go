package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourorg/catalog-api/internal/metrics"
)

// ErrRateLimited is returned when the outbound lookup quota is spent.
var ErrRateLimited = errors.New("geoip: rate limited")

const DefaultBaseURL = "https://ipapi.co"

// cityNames maps the provider's English city names to catalogue names.
var cityNames = map[string]string{
	"Moscow":           "Москва",
	"Saint Petersburg": "Санкт-Петербург",
	"Novosibirsk":      "Новосибирск",
	"Yekaterinburg":    "Екатеринбург",
	"Kazan":            "Казань",
	"Nizhniy Novgorod": "Нижний Новгород",
	"Chelyabinsk":      "Челябинск",
	"Samara":           "Самара",
	"Omsk":             "Омск",
	"Rostov-on-Don":    "Ростов-на-Дону",
	"Ufa":              "Уфа",
	"Krasnoyarsk":      "Красноярск",
	"Voronezh":         "Воронеж",
	"Perm":             "Пермь",
	"Volgograd":        "Волгоград",
}

// Location is what is known about a caller. City is set only when Detected.
type Location struct {
	IP       string   `json:"ip"`
	City     string   `json:"city,omitempty"`
	Country  string   `json:"country,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Detected bool     `json:"detected"`
}

type Config struct {
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
}

type Client struct {
	baseURL string
	http    *retryablehttp.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 500 * time.Millisecond
	rc.RetryMax = 1
	rc.Logger = nil
	// a spent provider quota is final until the window resets
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	rc.HTTPClient.Timeout = cfg.Timeout
	if rc.HTTPClient.Timeout <= 0 {
		rc.HTTPClient.Timeout = 3 * time.Second
	}
	perMinute := rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    rc,
		limiter: rate.NewLimiter(perMinute, cfg.RequestsPerMinute),
		log:     log.With(zap.String("component", "geoip")),
	}
}

type ipapiResponse struct {
	City      string   `json:"city"`
	Country   string   `json:"country_name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

// Lookup resolves ip to a location. Loopback, private and malformed addresses
// are reported as not detected without calling the provider.
func (c *Client) Lookup(ctx context.Context, ip string) (Location, error) {
	loc := Location{IP: ip}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.IsGlobalUnicast() || addr.IsPrivate() {
		metrics.GeoIPLookups.WithLabelValues("skipped").Inc()
		return loc, nil
	}
	if !c.limiter.Allow() {
		metrics.GeoIPLookups.WithLabelValues("rate_limited").Inc()
		return loc, ErrRateLimited
	}

	u := fmt.Sprintf("%s/%s/json/", c.baseURL, addr.String())
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return loc, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.GeoIPLookups.WithLabelValues("error").Inc()
		return loc, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.GeoIPLookups.WithLabelValues("rate_limited").Inc()
		return loc, ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		metrics.GeoIPLookups.WithLabelValues("error").Inc()
		return loc, fmt.Errorf("geoip error %d", resp.StatusCode)
	}

	var body ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.GeoIPLookups.WithLabelValues("error").Inc()
		return loc, fmt.Errorf("geoip decode: %w", err)
	}
	if body.Error {
		c.log.Debug("provider could not resolve address", zap.String("ip", ip), zap.String("reason", body.Reason))
		metrics.GeoIPLookups.WithLabelValues("undetected").Inc()
		return loc, nil
	}

	loc.Country = body.Country
	loc.Lat, loc.Lng = body.Latitude, body.Longitude
	if body.Country == "Russia" && body.City != "" {
		loc.City = body.City
		if ru, ok := cityNames[body.City]; ok {
			loc.City = ru
		}
		loc.Detected = true
		metrics.GeoIPLookups.WithLabelValues("detected").Inc()
		return loc, nil
	}
	metrics.GeoIPLookups.WithLabelValues("undetected").Inc()
	return loc, nil
}
