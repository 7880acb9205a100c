// Package etcd reads the per-host service configuration from an etcd
// cluster through its v2 keys API.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/artpar/ehbdeploy/internal/core/appconfig"
)

const (
	DefaultPort     = 4001
	DefaultProtocol = "http"
	DefaultTimeout  = 10 * time.Second

	// errorCodeKeyNotFound is the v2 API error code for a missing key.
	errorCodeKeyNotFound = 100
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrUnavailable     = errors.New("configuration store unavailable")
	ErrInvalidResponse = errors.New("invalid configuration store response")
	ErrNoHost          = errors.New("configuration store host is not set")
)

// StoreError reports a failed configuration store read.
type StoreError struct {
	Key        string
	StatusCode int // HTTP status, 0 when no response was received
	ErrorCode  int // etcd error code, 0 when absent
	Message    string
	Err        error
}

func (e *StoreError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("read %s: status %d: %s", e.Key, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("read %s: %s", e.Key, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Client
// =============================================================================

// Config configures the store client.
type Config struct {
	Host     string
	Port     int           // default: 4001
	Protocol string        // default: http
	Timeout  time.Duration // default: 10 seconds
}

// Client reads keys from one etcd endpoint.
type Client struct {
	http    *resty.Client
	baseURL string
}

// New creates a client for the endpoint described by cfg.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, ErrNoHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Protocol == "" {
		cfg.Protocol = DefaultProtocol
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	baseURL := cfg.Protocol + "://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: c, baseURL: baseURL}, nil
}

// Endpoint returns the base URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.baseURL
}

// ReadRecursive returns every leaf below key in store order. Directory
// nodes are descended, not returned. A key that is itself a leaf is
// returned as the only entry.
func (c *Client) ReadRecursive(ctx context.Context, key string) ([]appconfig.Entry, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"recursive": "true",
			"sorted":    "true",
		}).
		Get(keysPath(key))
	if err != nil {
		return nil, &StoreError{Key: key, Message: err.Error(), Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}

	body := resp.Body()
	if resp.IsError() {
		return nil, responseError(key, resp.StatusCode(), body)
	}
	if !gjson.ValidBytes(body) {
		return nil, &StoreError{Key: key, StatusCode: resp.StatusCode(), Message: "response is not JSON", Err: ErrInvalidResponse}
	}

	node := gjson.GetBytes(body, "node")
	if !node.Exists() {
		return nil, &StoreError{Key: key, StatusCode: resp.StatusCode(), Message: "response has no node", Err: ErrInvalidResponse}
	}

	var entries []appconfig.Entry
	collectLeaves(node, &entries)
	return entries, nil
}

// =============================================================================
// Helpers
// =============================================================================

func collectLeaves(node gjson.Result, out *[]appconfig.Entry) {
	if node.Get("dir").Bool() {
		for _, child := range node.Get("nodes").Array() {
			collectLeaves(child, out)
		}
		return
	}
	*out = append(*out, appconfig.Entry{
		Key:   node.Get("key").String(),
		Value: node.Get("value").String(),
	})
}

func keysPath(key string) string {
	segments := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/v2/keys/" + strings.Join(segments, "/")
}

func responseError(key string, status int, body []byte) *StoreError {
	parsed := gjson.ParseBytes(body)
	code := int(parsed.Get("errorCode").Int())
	msg := parsed.Get("message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = "request failed"
	}
	if cause := parsed.Get("cause").String(); cause != "" {
		msg += " (" + cause + ")"
	}

	sentinel := ErrUnavailable
	if code == errorCodeKeyNotFound {
		sentinel = ErrKeyNotFound
	}
	return &StoreError{Key: key, StatusCode: status, ErrorCode: code, Message: msg, Err: sentinel}
}
