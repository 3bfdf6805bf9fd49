package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const apiVersion = "2024-01"

const settingsDataKey = "config/settings_data.json"

var (
	// ErrUpstream covers transport failures and non-success responses.
	ErrUpstream = errors.New("shopify request failed")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("shopify resource not found")
	// ErrNoActiveTheme is returned when no theme has the main role.
	ErrNoActiveTheme = errors.New("no active theme found")
)

type Theme struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type Asset struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Client is an authenticated facade over the Shopify admin API for a
// single shop.
type Client struct {
	shopDomain  string
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

func NewClient(shopDomain, accessToken string) *Client {
	return &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		baseURL:     fmt.Sprintf("https://%s/admin/api/%s", shopDomain, apiVersion),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// GetActiveTheme returns the theme currently published on the shop.
func (c *Client) GetActiveTheme(ctx context.Context) (*Theme, error) {
	var payload struct {
		Themes []Theme `json:"themes"`
	}
	if err := c.get(ctx, "/themes.json", nil, &payload); err != nil {
		return nil, err
	}

	for _, theme := range payload.Themes {
		if theme.Role == "main" {
			return &theme, nil
		}
	}
	return nil, ErrNoActiveTheme
}

// GetThemeAsset fetches a single asset of the given theme.
func (c *Client) GetThemeAsset(ctx context.Context, themeID, assetKey string) (*Asset, error) {
	query := url.Values{}
	query.Set("asset[key]", assetKey)

	var payload struct {
		Asset Asset `json:"asset"`
	}
	path := fmt.Sprintf("/themes/%s/assets.json", themeID)
	if err := c.get(ctx, path, query, &payload); err != nil {
		return nil, err
	}
	return &payload.Asset, nil
}

// GetSettingsData fetches and unwraps the theme's settings_data.json.
func (c *Client) GetSettingsData(ctx context.Context, themeID string) ([]byte, error) {
	asset, err := c.GetThemeAsset(ctx, themeID, settingsDataKey)
	if err != nil {
		return nil, err
	}
	if asset.Value == "" {
		return nil, fmt.Errorf("%w: %s has no value", ErrNotFound, settingsDataKey)
	}
	return []byte(asset.Value), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d from %s", ErrUpstream, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return nil
}
