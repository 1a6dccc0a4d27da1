package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mensahub/internal/menu"
)

// Fetcher retrieves one day's raw markup fragment from the upstream source.
type Fetcher interface {
	FetchDay(ctx context.Context, date time.Time) (string, error)
}

// Client posts the day request the upstream AJAX endpoint expects and
// returns the markup fragment.
type Client struct {
	endpoint   string
	resourceID string
	httpClient *http.Client
}

// NewClient returns a Client for the given endpoint and mensa resource id.
// timeout bounds each day fetch; a timeout means "day unavailable", never a
// fatal run failure.
func NewClient(endpoint, resourceID string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		resourceID: resourceID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) FetchDay(ctx context.Context, date time.Time) (string, error) {
	form := url.Values{}
	form.Set("resources_id", c.resourceID)
	form.Set("date", date.Format(menu.DateLayout))
	form.Set("week", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building day request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching menu for %s: %w", date.Format(menu.DateLayout), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching menu for %s: status %d",
			date.Format(menu.DateLayout), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading menu body for %s: %w", date.Format(menu.DateLayout), err)
	}
	return string(body), nil
}
