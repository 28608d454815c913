// Package client содержит HTTP-клиент REST API заказов.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/api"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

const (
	defaultTimeout = 10 * time.Second
	blockingPath   = "/orders"
	reactivePath   = "/reactive/orders"
)

// Envelope: разобранный конверт ответа. Data оставлен сырым JSON.
type Envelope struct {
	Code     int                 `json:"code"`
	Status   string              `json:"status"`
	Message  string              `json:"message"`
	Data     json.RawMessage     `json:"data,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Paginate *api.PaginationInfo `json:"paginate,omitempty"`
}

// Response: ответ сервера: HTTP-код, исходное тело и конверт.
type Response struct {
	StatusCode int
	Body       []byte
	Envelope   Envelope
}

// APIError возвращается на ответы 4xx/5xx.
type APIError struct {
	Response *Response
}

func (e *APIError) Error() string {
	env := e.Response.Envelope
	msg := fmt.Sprintf("%d %s: %s", e.Response.StatusCode, env.Status, env.Message)
	for _, field := range sortedKeys(env.Errors) {
		msg += fmt.Sprintf("; %s: %s", field, strings.Join(env.Errors[field], ", "))
	}
	return msg
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет http.Client (тесты, таймауты).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithReactive переключает клиента на /reactive/orders.
func WithReactive(reactive bool) Option {
	return func(c *Client) {
		if reactive {
			c.basePath = reactivePath
		}
	}
}

// Client вызывает REST API заказов.
type Client struct {
	baseURL  string
	basePath string
	http     *http.Client
}

// New создаёт клиента для сервера baseURL, например http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		basePath: blockingPath,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListParams: параметры GET /orders. Пустые значения не передаются.
type ListParams struct {
	Page         int
	Size         int
	Sort         string
	Order        string
	CustomerName string
	From         string
	To           string
}

func (p ListParams) values() url.Values {
	v := pageValues(p.Page, p.Size)
	setIfNotEmpty(v, "sort", p.Sort)
	setIfNotEmpty(v, "order", p.Order)
	setIfNotEmpty(v, "customerName", p.CustomerName)
	setIfNotEmpty(v, "from", p.From)
	setIfNotEmpty(v, "to", p.To)
	return v
}

func (c *Client) CreateOrder(ctx context.Context, req api.OrderRequest) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.basePath, nil, body)
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*Response, error) {
	return c.do(ctx, http.MethodGet, c.orderPath(id), nil, nil)
}

func (c *Client) ListOrders(ctx context.Context, params ListParams) (*Response, error) {
	return c.do(ctx, http.MethodGet, c.basePath, params.values(), nil)
}

func (c *Client) ListOrdersByCustomer(ctx context.Context, customerName string, page, size int) (*Response, error) {
	path := c.basePath + "/customers/" + url.PathEscape(customerName)
	return c.do(ctx, http.MethodGet, path, pageValues(page, size), nil)
}

func (c *Client) ListSpendingPerCustomer(ctx context.Context, page, size int) (*Response, error) {
	return c.do(ctx, http.MethodGet, c.basePath+"/customers/spending", pageValues(page, size), nil)
}

func (c *Client) DeleteOrder(ctx context.Context, id int64) (*Response, error) {
	return c.do(ctx, http.MethodDelete, c.orderPath(id), nil, nil)
}

func (c *Client) orderPath(id int64) string {
	return c.basePath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent("ordersctl"))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Body: raw}
	if err := json.Unmarshal(raw, &resp.Envelope); err != nil {
		return resp, fmt.Errorf("decode response (status %d): %w", httpResp.StatusCode, err)
	}
	if httpResp.StatusCode >= http.StatusBadRequest {
		return resp, &APIError{Response: resp}
	}
	return resp, nil
}

func pageValues(page, size int) url.Values {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		v.Set("size", strconv.Itoa(size))
	}
	return v
}

func setIfNotEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
