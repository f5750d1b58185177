// Package remote talks to the posts collection of a JSON-over-HTTP document
// store (Firebase Realtime Database REST surface).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	"github.com/idilsaglam/postboard/internal/model"
)

const (
	// DefaultResource is the collection name used when Config.Resource is empty.
	DefaultResource = "posts"
	defaultTimeout  = 15 * time.Second
	maxErrorBody    = 64 << 10
)

// ErrMissingID is returned by Update and Delete when called without a key.
var ErrMissingID = errors.New("missing record id")

// Config configures a Client.
type Config struct {
	// Endpoint is the root URL of the store, e.g. https://<db>.firebasedatabase.app.
	Endpoint string
	// Resource is the collection name. Defaults to "posts".
	Resource string
	// Timeout bounds every request. Defaults to 15s.
	Timeout time.Duration
	// HTTPClient overrides the transport. Its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client issues the four CRUD operations against the store.
type Client struct {
	http     *http.Client
	endpoint *url.URL
	resource string
}

// New returns a Client for the given configuration.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.Endpoint)
	if raw == "" {
		return nil, errors.New("endpoint is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse endpoint")
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, errors.Errorf("endpoint must be an absolute http(s) URL: %q", raw)
	}

	resource := strings.Trim(strings.TrimSpace(cfg.Resource), "/")
	if resource == "" {
		resource = DefaultResource
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{http: hc, endpoint: u, resource: resource}, nil
}

// Resource returns the collection name the client works on.
func (c *Client) Resource() string {
	return c.resource
}

// List fetches the whole collection.
func (c *Client) List(ctx context.Context) ([]model.Post, error) {
	body, err := c.do(ctx, "list", http.MethodGet, c.collectionURL(), nil)
	if err != nil {
		return nil, err
	}
	posts, err := Collection(body)
	return posts, errors.Wrap(err, "could not parse collection")
}

// Create adds a new record and returns the key the store assigned to it.
func (c *Client) Create(ctx context.Context, f model.Fields) (string, error) {
	payload, err := json.Marshal(struct {
		Title string `json:"title"`
		Image string `json:"image"`
		Body  string `json:"body"`
	}{f.Title, f.Image, f.Body})
	if err != nil {
		return "", errors.Wrap(err, "could not serialize post")
	}

	body, err := c.do(ctx, "create", http.MethodPost, c.collectionURL(), payload)
	if err != nil {
		return "", err
	}
	return assignedKey(body), nil
}

// Update replaces every field of the record stored under id.
func (c *Client) Update(ctx context.Context, id string, f model.Fields) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "could not serialize post")
	}

	_, err = c.do(ctx, "update", http.MethodPut, c.recordURL(id), payload)
	return err
}

// Delete removes the record stored under id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	_, err := c.do(ctx, "delete", http.MethodDelete, c.recordURL(id), nil)
	return err
}

func (c *Client) collectionURL() string {
	return c.resolve(c.resource + ".json")
}

func (c *Client) recordURL(id string) string {
	return c.resolve(c.resource, id+".json")
}

// resolve appends escaped path segments to the endpoint. Keys may contain
// characters that need escaping, so the raw path is built by hand.
func (c *Client) resolve(segments ...string) string {
	u := *c.endpoint
	escaped := strings.TrimRight(u.EscapedPath(), "/")
	for _, s := range segments {
		escaped += "/" + url.PathEscape(s)
	}
	if unescaped, err := url.PathUnescape(escaped); err == nil {
		u.Path = unescaped
	}
	u.RawPath = escaped
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	//
	// Build request
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "could not build request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	//
	// Perform request
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "could not perform %s request", op)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, newStoreError(op, res.StatusCode, raw)
	}

	//
	// Process response
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s response", op)
	}
	return data, nil
}

// assignedKey extracts the key from a create reply of the form {"name": "<key>"}.
func assignedKey(body []byte) string {
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return ""
	}
	return string(v.GetStringBytes("name"))
}

// A StoreError is a non-2xx reply from the store.
type StoreError struct {
	Op         string
	StatusCode int
	Message    string
}

func newStoreError(op string, code int, body []byte) *StoreError {
	e := &StoreError{Op: op, StatusCode: code, Message: http.StatusText(code)}
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return e
	}
	errv := v.Get("error")
	switch {
	case errv == nil:
	case errv.Type() == fastjson.TypeString:
		e.Message = string(errv.GetStringBytes())
	case errv.Type() == fastjson.TypeObject:
		if msg := errv.GetStringBytes("message"); len(msg) > 0 {
			e.Message = string(msg)
		}
	}
	return e
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s rejected by store: %d %s", e.Op, e.StatusCode, e.Message)
}

// NotFound reports whether the store answered 404.
func (e *StoreError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsRejected reports whether err is, or wraps, a StoreError.
func IsRejected(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsTransport reports whether err is a failure to reach the store at all
// (DNS, refused connection, timeout) as opposed to a rejected operation.
func IsTransport(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue)
}
