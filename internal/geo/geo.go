package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// UnknownCountry is what every failed or disabled lookup degrades to.
const UnknownCountry = "Unknown"

// Resolver maps a client IP to a display country. Implementations must
// respect the context deadline; callers treat any error as Unknown.
type Resolver interface {
	Country(ctx context.Context, ip string) (string, error)
}

// Static always answers with a fixed country. Used when no lookup
// endpoint is configured, and in tests.
type Static struct {
	Value string
}

func (s Static) Country(ctx context.Context, ip string) (string, error) {
	if s.Value == "" {
		return UnknownCountry, nil
	}
	return s.Value, nil
}

// HTTPResolver queries an ip-api.com style endpoint that answers
// GET {base}/{ip} with {"country": "..."}.
type HTTPResolver struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPResolver(baseURL string) *HTTPResolver {
	return &HTTPResolver{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (r *HTTPResolver) Country(ctx context.Context, ip string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s", r.BaseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build geo request: %w", err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geo lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geo response: %w", err)
	}
	if body.Country == "" {
		return UnknownCountry, nil
	}
	return body.Country, nil
}
