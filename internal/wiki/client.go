// Package wiki is the narrow HTTP client for the external wiki content
// engine. The engine owns page content, markup, and versioning; this site
// only reads articles for display and pushes protection state back. Page
// identity (the numeric subject ID and its label) originates there and is
// treated as opaque here.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTokenRejected is returned when the engine refuses an edit token,
// typically because it expired between acquire and use. Callers re-acquire
// and retry once; a second rejection propagates.
var ErrTokenRejected = errors.New("wiki: edit token rejected")

// Page is the slice of the engine's page response we display.
type Page struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Client talks to the wiki engine's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the engine at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetPage fetches a page by its numeric ID. Pass-through: no caching, no
// transformation.
func (c *Client) GetPage(ctx context.Context, id int64) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/pages/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("wiki: building page request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wiki: fetching page %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("wiki: page %d not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki: page fetch returned status %d", resp.StatusCode)
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("wiki: decoding page %d: %w", id, err)
	}
	return &page, nil
}

// AcquireEditToken requests a fresh capability token from the engine.
// Every mutating call is an explicit acquire-then-use pair; tokens are
// never cached across operations.
func (c *Client) AcquireEditToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/tokens/edit", nil)
	if err != nil {
		return "", fmt.Errorf("wiki: building token request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wiki: acquiring edit token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wiki: token acquire returned status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("wiki: decoding edit token: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("wiki: engine returned an empty edit token")
	}
	return body.Token, nil
}

// Protect tells the engine to set the protection state of a page, using a
// token from AcquireEditToken. A 401/403 response maps to ErrTokenRejected.
func (c *Client) Protect(ctx context.Context, token string, id int64, protected bool) error {
	form := url.Values{
		"token":     {token},
		"protected": {fmt.Sprint(protected)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/pages/%d/protect", c.baseURL, id),
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("wiki: building protect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("wiki: protecting page %d: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrTokenRejected
	default:
		return fmt.Errorf("wiki: protect returned status %d", resp.StatusCode)
	}
}
