package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/backend"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
)

const defaultTimeout = 15 * time.Second

// Client talks to the notification REST endpoints. It implements
// backend.API over plain HTTP with bearer authentication.
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
	logger     logger.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

var errBaseURLRequired = errors.New("httpapi: base url is required")

// New builds a client for the given API base URL.
func New(baseURL, credential string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errBaseURLRequired
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		credential: credential,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     &logger.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchNotifications retrieves one page of a stream.
func (c *Client) FetchNotifications(ctx context.Context, source domain.Source, page, size int) (backend.ListPage, error) {
	query := url.Values{}
	query.Set("source", string(source))
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	endpoint := fmt.Sprintf("%s/api/notifications?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backend.ListPage{}, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return backend.ListPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return backend.ListPage{}, statusError("fetch notifications", resp)
	}

	var result backend.ListPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return backend.ListPage{}, fmt.Errorf("httpapi: decode notifications: %w", err)
	}
	return result, nil
}

// ConfirmRead reports a read transition to the backend.
func (c *Client) ConfirmRead(ctx context.Context, source domain.Source, id int64) error {
	endpoint := fmt.Sprintf("%s/api/notifications/%s/%d/read", c.baseURL, source, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("confirm read", resp)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("httpapi: %s: %s", op, msg)
}
