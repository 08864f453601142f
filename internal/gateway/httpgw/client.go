// Package httpgw talks to the job REST API and its websocket stream.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/gateway"
)

var _ gateway.Gateway = (*Client)(nil)

const apiPrefix = "/api/v1"

// Client is a Gateway backed by the REST API.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

// New creates a Client for baseURL, e.g. http://localhost:8080.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
		logger:  logger,
	}
}

func (c *Client) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Job, error) {
	var job domain.Job
	err := c.do(ctx, http.MethodPost, "/jobs", req, &job)
	return job, err
}

func (c *Client) FetchStatus(ctx context.Context, id string) (domain.Job, error) {
	var job domain.Job
	err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &job)
	return job, err
}

func (c *Client) Cancel(ctx context.Context, id string) (domain.Job, error) {
	var job domain.Job
	err := c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(id)+"/cancel", nil, &job)
	return job, err
}

// FetchResult downloads the artifact of a completed job. The backend answers
// 404 both for unknown jobs and for results not produced yet, so a 404 is
// resolved with a status request.
func (c *Client) FetchResult(ctx context.Context, id string) (domain.Artifact, error) {
	var art domain.Artifact
	err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id)+"/result", nil, &art)
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		job, serr := c.FetchStatus(ctx, id)
		if serr != nil {
			return art, serr
		}
		return art, fmt.Errorf("%w: job is %s", domain.ErrResultNotReady, job.Status)
	case errors.Is(err, domain.ErrInvalidState):
		return art, fmt.Errorf("%w: %w", domain.ErrResultNotReady, err)
	}
	return art, err
}

func (c *Client) List(ctx context.Context, userID string, status domain.Status) ([]domain.Job, error) {
	q := url.Values{"user_id": {userID}}
	if status != "" {
		q.Set("status", string(status))
	}
	var resp struct {
		Jobs []domain.Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, nil)
}

// Stream follows a job over the websocket endpoint, calling fn with every
// snapshot until the job finishes, the server closes the stream, or ctx ends.
func (c *Client) Stream(ctx context.Context, id string, fn func(domain.Job)) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + apiPrefix + "/jobs/" + url.PathEscape(id) + "/stream"

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return statusError(resp.StatusCode, "")
		}
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var msg struct {
			domain.Job
			Error string `json:"error"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		if msg.Error != "" {
			return fmt.Errorf("%w: %s", domain.ErrJobNotFound, msg.Error)
		}
		fn(msg.Job)
		if msg.Status.IsTerminal() {
			return nil
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		c.logger.Debug("Job API returned an error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Error),
		)
		return statusError(resp.StatusCode, apiErr.Error)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// Includes statuses outside the closed set.
		return fmt.Errorf("%w: malformed response: %w", domain.ErrUnavailable, err)
	}
	return nil
}

// statusError maps an HTTP status onto the domain error kinds.
func statusError(code int, msg string) error {
	if msg == "" {
		msg = http.StatusText(code)
	}
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, msg)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrInvalidState, msg)
	case code == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", domain.ErrPayloadTooLarge, msg)
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	default:
		return fmt.Errorf("%w: %d %s", domain.ErrUnavailable, code, msg)
	}
}
