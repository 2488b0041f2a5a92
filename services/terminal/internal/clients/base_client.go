package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parkgate/services/terminal/internal/apperr"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// BaseClient sends JSON requests to the remote authority and maps failures onto apperr kinds.
type BaseClient struct {
	baseURL   string
	client    HTTPDoer
	logger    *zap.Logger
	requestID func() string
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer, logger *zap.Logger) *BaseClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		logger:    logger,
		requestID: uuid.NewString,
	}
}

func (c *BaseClient) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Do executes HTTP request and returns status/body.
func (c *BaseClient) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", c.requestID())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

type errorBody struct {
	Message string         `json:"message"`
	Errors  map[string]any `json:"errors"`
}

// call is one authority request. Token is optional and sent as a bearer credential.
type call struct {
	op     string
	method string
	path   string
	token  string
	in     any
	out    any
}

func (c *BaseClient) doJSON(ctx context.Context, cl call) error {
	var body []byte
	if cl.in != nil {
		data, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
		body = data
	}

	var headers map[string]string
	if cl.token != "" {
		headers = map[string]string{"Authorization": "Bearer " + cl.token}
	}

	started := time.Now()
	status, respBody, err := c.Do(ctx, cl.method, cl.path, body, headers)
	if err != nil {
		c.logger.Warn("authority request failed", zap.String("op", cl.op), zap.Error(err))
		return apperr.Network(cl.op, err)
	}
	c.logger.Debug("authority request", zap.String("op", cl.op), zap.Int("status", status), zap.Duration("took", time.Since(started)))

	if status < 200 || status >= 300 {
		var eb errorBody
		if len(respBody) > 0 && json.Unmarshal(respBody, &eb) == nil && eb.Message != "" {
			return apperr.Remote(cl.op, status, eb.Message, eb.Errors)
		}
		return apperr.HTTPStatus(cl.op, status)
	}

	if cl.out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, cl.out); err != nil {
		return apperr.Network(cl.op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
