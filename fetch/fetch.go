// Package fetch is the thin request helper application code uses next to
// the reactive core. Callbacks are posted back onto the update loop, so
// application handlers run on the same cooperative thread as everything
// else.
package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pulsehtml/pulse/sched"
)

type Response struct {
	Status int
	Body   []byte
}

type StatusError struct {
	Message string
	Status  int
}

func (s StatusError) Error() string {
	return s.Message
}

type Client struct {
	HTTPClient *http.Client

	loop   *sched.Loop
	logger *zap.Logger
}

func NewClient(loop *sched.Loop, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		HTTPClient: http.DefaultClient,
		loop:       loop,
		logger:     logger,
	}
}

// Do performs the request off-loop and delivers the outcome to every
// matching callback, in order. A non-2xx status counts as an error.
func (c *Client) Do(method, url string, body []byte, onSuccess []func(*Response), onError []func(error)) {
	go func() {
		resp, err := c.perform(method, url, body)
		c.post(func() {
			if err != nil {
				c.logger.Warn("request failed", zap.String("url", url), zap.Error(err))
				for _, fn := range onError {
					fn(err)
				}
				return
			}
			for _, fn := range onSuccess {
				fn(resp)
			}
		})
	}()
}

func (c *Client) perform(method, url string, body []byte) (*Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	httpResp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, StatusError{
			Message: fmt.Sprintf("%s %s: %s", method, url, httpResp.Status),
			Status:  httpResp.StatusCode,
		}
	}
	return &Response{Status: httpResp.StatusCode, Body: data}, nil
}

// GetJSON fetches and decodes into out before the success callbacks run.
func (c *Client) GetJSON(url string, out interface{}, onSuccess []func(*Response), onError []func(error)) {
	c.Do(http.MethodGet, url, nil, []func(*Response){func(resp *Response) {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			for _, fn := range onError {
				fn(err)
			}
			return
		}
		for _, fn := range onSuccess {
			fn(resp)
		}
	}}, onError)
}

func (c *Client) post(fn func()) {
	if c.loop != nil {
		c.loop.Post(fn)
		return
	}
	fn()
}
