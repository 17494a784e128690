package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/edgefiler/filer_sdk_go/internal/filerapi"
	"github.com/edgefiler/filer_sdk_go/internal/httpx"
)

// Client provides access to an edge filer's management API.
type Client struct {
	backend Backend
	logger  hclog.Logger
}

// New constructs a Client bound to the appliance at baseURL.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return NewWithBackend(&httpBackend{client: httpClient})
}

// NewWithBackend allows callers to supply a custom backend (e.g., mocks).
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b, logger: hclog.NewNullLogger()}
}

// WithLogger returns c after attaching l for request tracing.
func (c *Client) WithLogger(l hclog.Logger) *Client {
	if c != nil && l != nil {
		c.logger = l
	}
	return c
}

// Execute invokes a named action on scope. The returned Task is either
// already complete (inline result) or refers to a background task.
func (c *Client) Execute(ctx context.Context, scope, action string, param any) (*Task, error) {
	if strings.TrimSpace(scope) == "" {
		return nil, fmt.Errorf("gateway: scope is required")
	}
	if strings.TrimSpace(action) == "" {
		return nil, fmt.Errorf("gateway: action is required")
	}
	if c == nil || c.backend == nil {
		return nil, ErrNilClient
	}

	var raw []byte
	if param != nil {
		data, err := httpx.MarshalJSON(param)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode %s param: %w", action, err)
		}
		raw = data
	}

	c.logger.Trace("executing action", "scope", scope, "action", action)
	data, err := c.backend.Execute(ctx, scope, action, raw)
	if err != nil {
		return nil, fmt.Errorf("gateway: execute %s on %s: %w", action, scope, err)
	}

	task := &Task{Name: action}
	if ref, ok := filerapi.ParseTaskRef(data); ok {
		task.Ref = ref
		return task, nil
	}
	task.Result = append(json.RawMessage(nil), data...)
	return task, nil
}

// Get reads the object stored at path. A missing or null value yields a nil
// Object and no error.
func (c *Client) Get(ctx context.Context, path string) (Object, error) {
	data, err := c.getRaw(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	obj, err := filerapi.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("gateway: get %s: %w", path, err)
	}
	return obj, nil
}

// GetInto reads the value stored at path and decodes it into out. It returns
// ErrNotFound when the path holds no value.
func (c *Client) GetInto(ctx context.Context, path string, out any) error {
	data, err := c.getRaw(ctx, path)
	if err != nil {
		return err
	}
	if filerapi.IsNull(data) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("gateway: get %s: %w", path, err)
	}
	if err := filerapi.Decode(generic, out); err != nil {
		return fmt.Errorf("gateway: get %s: %w", path, err)
	}
	return nil
}

// Put replaces the value stored at path.
func (c *Client) Put(ctx context.Context, path string, value any) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("gateway: path is required")
	}
	if c == nil || c.backend == nil {
		return ErrNilClient
	}
	data, err := httpx.MarshalJSON(value)
	if err != nil {
		return fmt.Errorf("gateway: encode %s: %w", path, err)
	}
	c.logger.Trace("updating configuration", "path", path)
	if err := c.backend.Put(ctx, path, data); err != nil {
		return fmt.Errorf("gateway: put %s: %w", path, err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("gateway: path is required")
	}
	if c == nil || c.backend == nil {
		return nil, ErrNilClient
	}
	c.logger.Trace("reading configuration", "path", path)
	return c.backend.Get(ctx, path)
}

// Backend is the raw JSON transport behind a Client.
type Backend interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, raw []byte) error
	Execute(ctx context.Context, scope, action string, param []byte) ([]byte, error)
}

const apiPrefix = "/api"

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) Get(ctx context.Context, path string) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("gateway: http backend not configured")
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   apiPath(path),
	})
	if err != nil {
		return nil, notFound(err, path)
	}
	return httpx.ReadAllAndClose(resp.Body)
}

func (b *httpBackend) Put(ctx context.Context, path string, raw []byte) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("gateway: http backend not configured")
	}
	req, err := httpx.JSONRequest(http.MethodPut, apiPath(path), json.RawMessage(raw))
	if err != nil {
		return err
	}
	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return notFound(err, path)
	}
	_ = resp.Body.Close()
	return nil
}

func (b *httpBackend) Execute(ctx context.Context, scope, action string, param []byte) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("gateway: http backend not configured")
	}
	var p any
	if len(param) > 0 {
		p = json.RawMessage(param)
	}
	req, err := httpx.JSONRequest(http.MethodPost, apiPath(scope), filerapi.NewActionRequest(action, p))
	if err != nil {
		return nil, err
	}
	// Actions are not idempotent; a retried createFolder could race itself.
	req.DisableRetry = true
	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return httpx.ReadAllAndClose(resp.Body)
}

func apiPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return apiPrefix + path
}

func notFound(err error, path string) error {
	var herr *httpx.HTTPError
	if errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return err
}
