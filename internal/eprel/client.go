package eprel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvdzapata/EPREL/internal/domain"
	"github.com/go-resty/resty/v2"
)

// MaxPageSize is the upstream limit on items per request.
const MaxPageSize = 100

// DefaultBaseURL is the EPREL public API root.
const DefaultBaseURL = "https://eprel.ec.europa.eu/api/public"

// Page is one bounded batch of catalog records with pagination metadata.
type Page struct {
	Items      []domain.RawPayload
	TotalItems int
	TotalPages int
	Page       int // 0-indexed
	PageSize   int
}

// ClientConfig holds configuration for the EPREL API client.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client is a thin wrapper over the EPREL public API. It handles request
// construction, auth headers, and response decoding; throttling and retries
// belong to the Fetcher.
type Client struct {
	http    *resty.Client
	baseURL string
}

// NewClient creates a new EPREL API client.
func NewClient(cfg *ClientConfig) *Client {
	client := resty.New()
	client.SetHeader("x-api-key", cfg.APIKey)
	client.SetHeader("Accept", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{http: client, baseURL: baseURL}
}

// FetchPage fetches one page of products for a product group. The page index
// is 0-based; the upstream API counts pages from 1.
func (c *Client) FetchPage(ctx context.Context, category string, page, pageSize int) (*Page, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", fmt.Sprintf("%d", page+1)).
		SetQueryParam("limit", fmt.Sprintf("%d", pageSize)).
		Get(fmt.Sprintf("%s/products/%s", c.baseURL, category))
	if err != nil {
		// resty returns here on timeouts and connection faults
		return nil, &TransientError{Err: err}
	}
	if resp.IsError() {
		return nil, classifyStatus(resp.StatusCode(), resp.String())
	}

	items, total, exact, err := decodeProductList(resp.Body())
	if err != nil {
		return nil, &FatalError{Reason: "malformed page response", Err: err}
	}

	totalPages := (total + pageSize - 1) / pageSize
	if !exact {
		// The response carries no catalog size. A full page means more may
		// follow; a short page is the last one. Either way report the count
		// seen so far instead of pretending one page is the whole catalog.
		total = page*pageSize + len(items)
		totalPages = page + 1
		if len(items) == pageSize {
			totalPages = page + 2
		}
	}
	return &Page{
		Items:      items,
		TotalItems: total,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Group is one upstream product group descriptor.
type Group struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ProductGroups returns the upstream product group list, falling back to the
// static known set when the endpoint is unavailable.
func (c *Client) ProductGroups(ctx context.Context) ([]Group, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.baseURL + "/product-groups")
	if err == nil && resp.IsSuccess() {
		var groups []Group
		if jsonErr := json.Unmarshal(resp.Body(), &groups); jsonErr == nil && len(groups) > 0 {
			return groups, nil
		}
	}

	groups := make([]Group, 0, len(domain.KnownGroups))
	for _, code := range domain.KnownGroups {
		groups = append(groups, Group{Code: code, Name: code})
	}
	return groups, nil
}

// EnergyLabel downloads the energy label document for a product.
// Supported formats are pdf, svg, and jpg.
func (c *Client) EnergyLabel(ctx context.Context, category, productID, format string) ([]byte, error) {
	return c.fetchDocument(ctx, fmt.Sprintf("%s/products/%s/%s/labels", c.baseURL, category, productID), format)
}

// ProductFiche downloads the product information sheet for a product.
func (c *Client) ProductFiche(ctx context.Context, category, productID, format string) ([]byte, error) {
	return c.fetchDocument(ctx, fmt.Sprintf("%s/products/%s/%s/fiches", c.baseURL, category, productID), format)
}

func (c *Client) fetchDocument(ctx context.Context, url, format string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("format", format).
		Get(url)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if resp.IsError() {
		return nil, classifyStatus(resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

// HealthCheck verifies API reachability and credentials by fetching a minimal
// page of a common product group.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.FetchPage(ctx, "dishwashers", 0, 1)
	return err
}

// decodeProductList tolerates the response shapes the API mixes: a bare JSON
// array, or an object wrapping the items under data/items/products/hits with
// the total under total/totalCount/count/size. The exact flag reports whether
// the response actually named a catalog total; a bare array or a total-less
// object only bounds it from below.
func decodeProductList(body []byte) (items []domain.RawPayload, total int, exact bool, err error) {
	var asList []domain.RawPayload
	if err := json.Unmarshal(body, &asList); err == nil {
		return asList, len(asList), false, nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(body, &asObject); err != nil {
		return nil, 0, false, fmt.Errorf("response is neither a list nor an object: %w", err)
	}

	found := false
	for _, key := range []string{"data", "items", "products", "hits"} {
		raw, ok := asObject[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, 0, false, fmt.Errorf("decoding %q: %w", key, err)
		}
		found = true
		break
	}
	if !found {
		return nil, 0, false, fmt.Errorf("response carries no recognizable item list")
	}

	total = len(items)
	for _, key := range []string{"total", "totalCount", "count", "size"} {
		raw, ok := asObject[key]
		if !ok {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			total = n
			exact = true
			break
		}
	}

	return items, total, exact, nil
}
