// Package client implements the authenticated HTTP client for the
// telematics vendor API. All responses share the envelope
// {errorcode, data}; errorcode 200 is the only success value.
package client

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// apiTimeFormat is the local-time layout the vendor uses for every
// timestamp on the wire.
const apiTimeFormat = "2006-01-02 15:04:05"

// keyValidity is a deliberate underestimate of the server's one-hour key
// expiry so a key is never used close to its real deadline.
const keyValidity = 50 * time.Minute

// Config holds the connection settings for the vendor API.
type Config struct {
	BaseURL       string
	Username      string
	Password      string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// authSession is an immutable auth key with its local expiry. The client
// swaps the whole value on refresh; it is never mutated in place.
type authSession struct {
	key       string
	expiresAt time.Time
}

func (s *authSession) valid(now time.Time) bool {
	return s != nil && s.key != "" && now.Before(s.expiresAt)
}

// Client is a vendor API client with a cached auth session. It is safe
// for concurrent use by multiple sync services.
type Client struct {
	http     *resty.Client
	username string
	password string

	mu      sync.Mutex
	session *authSession
	now     func() time.Time
}

// New creates a Client. Transient HTTP failures (429 and 5xx) are
// retried with a fixed delay at the transport layer; everything else
// surfaces to the caller on the first attempt.
func New(cfg Config) *Client {
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryAttempts).
		SetRetryWaitTime(cfg.RetryDelay).
		SetRetryMaxWaitTime(cfg.RetryDelay).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})

	return &Client{
		http:     r,
		username: cfg.Username,
		password: cfg.Password,
		now:      time.Now,
	}
}

// envelope is the vendor's uniform response wrapper.
type envelope struct {
	ErrorCode int             `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

// Authenticate requests a fresh key regardless of the cached session
// state. Used as a connection pre-flight check.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

// authenticateLocked submits the username and MD5-hashed password and
// caches the returned key. Callers must hold c.mu.
func (c *Client) authenticateLocked(ctx context.Context) error {
	sum := md5.Sum([]byte(c.password))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("username", c.username).
		SetQueryParam("password", hex.EncodeToString(sum[:])).
		Get("/api/v1/basic/key")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: auth endpoint returned HTTP %d", ErrAuthFailed, resp.StatusCode())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("%w: malformed auth response: %v", ErrAuthFailed, err)
	}
	if env.ErrorCode != http.StatusOK {
		return fmt.Errorf("%w: %v", ErrAuthFailed, &APIError{Endpoint: "/api/v1/basic/key", Code: env.ErrorCode})
	}

	var data struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("%w: malformed key payload: %v", ErrAuthFailed, err)
	}
	if data.Key == "" {
		return fmt.Errorf("%w: empty key in auth response", ErrAuthFailed)
	}

	c.session = &authSession{key: data.Key, expiresAt: c.now().Add(keyValidity)}
	return nil
}

// ensureKey returns a valid auth key, re-authenticating transparently
// when the cached session is absent or expired.
func (c *Client) ensureKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.valid(c.now()) {
		return c.session.key, nil
	}
	if err := c.authenticateLocked(ctx); err != nil {
		return "", err
	}
	return c.session.key, nil
}

// decode unwraps the response envelope, translating HTTP and application
// failures into typed errors. It never fabricates an empty success.
func decode(resp *resty.Response, reqErr error, endpoint string) (json.RawMessage, error) {
	if reqErr != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, reqErr)
	}
	if resp.IsError() {
		return nil, &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode()}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("malformed response from %s: %w", endpoint, err)
	}
	if env.ErrorCode != http.StatusOK {
		return nil, &APIError{Endpoint: endpoint, Code: env.ErrorCode}
	}
	return env.Data, nil
}

// FormatTime renders a timestamp in the vendor's wire format.
func FormatTime(t time.Time) string {
	return t.Format(apiTimeFormat)
}

// ParseTime parses a vendor wire-format timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(apiTimeFormat, s, time.Local)
}
