package checklist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/homeledger/incident-engine/internal/errors"
)

const (
	defaultHTTPTimeout = 3 * time.Second
	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// HTTPClient queries a remote checklist service:
//
//	GET {base}/properties/{propertyId}/checklist-items?orchestrationActionId={id}
//
// The service answers 200 with a JSON array (first element wins) or 404.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for baseURL. A nil httpClient gets a
// default client with timeout applied.
func NewHTTPClient(baseURL string, timeout time.Duration, httpClient *http.Client) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// FindChecklistItem implements Finder.
func (c *HTTPClient) FindChecklistItem(ctx context.Context, propertyID, orchestrationActionID string) (*Item, error) {
	endpoint := fmt.Sprintf("%s/properties/%s/checklist-items?orchestrationActionId=%s",
		c.baseURL, url.PathEscape(propertyID), url.QueryEscape(orchestrationActionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build checklist request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.New(err).
			Component("checklist").
			Category(errors.CategoryNetwork).
			Context("property_id", propertyID).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Newf("checklist service returned %d", resp.StatusCode).
			Component("checklist").
			Category(errors.CategoryNetwork).
			Context("property_id", propertyID).
			Context("status", resp.StatusCode).
			Build()
	}

	var items []Item
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode checklist response: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}
