package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "TUDOR_HTTP_TIMEOUT"
	emailEnvKey        = "TUDOR_EMAIL"
	passwordEnvKey     = "TUDOR_PASSWORD"
)

// Client is a simple HTTP client for the tudor API. Credentials, when set,
// are sent as HTTP Basic auth.
type Client struct {
	baseURL  string
	http     *http.Client
	email    string
	password string
}

// NewClient creates a new API client with credentials from TUDOR_EMAIL and
// TUDOR_PASSWORD.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: httpTimeoutFromEnv()},
		email:    strings.TrimSpace(os.Getenv(emailEnvKey)),
		password: os.Getenv(passwordEnvKey),
	}
}

// WithCredentials returns a copy of c that authenticates as email.
func (c *Client) WithCredentials(email, password string) *Client {
	out := *c
	out.email, out.password = email, password
	return &out
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, req TaskCreateRequest) (TaskResponse, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodPost, "/v1/tasks", nil, req, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (TaskResponse, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, req TaskUpdateRequest) (TaskResponse, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodPatch, taskPath(id), nil, req, &resp)
	return resp, err
}

func (c *Client) ListTasks(ctx context.Context, query url.Values) (TaskPageResponse, error) {
	var resp TaskPageResponse
	err := c.do(ctx, http.MethodGet, "/v1/tasks", query, nil, &resp)
	return resp, err
}

// SetDone marks a task done or reopens it.
func (c *Client) SetDone(ctx context.Context, id int64, done bool) (TaskResponse, error) {
	action := "/done"
	if !done {
		action = "/undone"
	}
	var resp TaskResponse
	err := c.do(ctx, http.MethodPost, taskPath(id)+action, nil, nil, &resp)
	return resp, err
}

// Move runs a single-step reorder: up, down, top or bottom.
func (c *Client) Move(ctx context.Context, id int64, direction string, query url.Values) error {
	return c.do(ctx, http.MethodPost, taskPath(id)+"/move/"+url.PathEscape(direction), query, nil, nil)
}

// MoveAfter places a task directly below target.
func (c *Client) MoveAfter(ctx context.Context, id, target int64) error {
	return c.do(ctx, http.MethodPost, taskPath(id)+"/move-after/"+strconv.FormatInt(target, 10), nil, nil, nil)
}

func (c *Client) CreateUser(ctx context.Context, req UserCreateRequest) (UserResponse, error) {
	var resp UserResponse
	err := c.do(ctx, http.MethodPost, "/v1/users", nil, req, &resp)
	return resp, err
}

// Export streams an export document in format to w.
func (c *Client) Export(ctx context.Context, format string, w io.Writer) error {
	query := url.Values{}
	if format != "" {
		query.Set("format", format)
	}
	resp, err := c.send(ctx, http.MethodGet, "/v1/export", query, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

// Import uploads an export document in format.
func (c *Client) Import(ctx context.Context, format string, r io.Reader) (ImportResponse, error) {
	var out ImportResponse
	query := url.Values{}
	if format != "" {
		query.Set("format", format)
	}
	resp, err := c.send(ctx, http.MethodPost, "/v1/import", query, r, "application/octet-stream")
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	err = json.NewDecoder(resp.Body).Decode(&out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	resp, err := c.send(ctx, method, path, query, reader, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// send issues a request and turns error statuses into *APIError. The caller
// closes the body of a successful response.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("api error: %s", resp.Status)
	return apiErr
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.email == "" || req == nil {
		return
	}
	req.SetBasicAuth(c.email, c.password)
}

func taskPath(id int64) string {
	return "/v1/tasks/" + strconv.FormatInt(id, 10)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
