package validators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

type httpClient struct {
	client *fasthttp.Client
}

func newHTTPClient(c *fasthttp.Client) *httpClient {
	if c == nil {
		c = &fasthttp.Client{
			Name:                "az-connect",
			MaxIdleConnDuration: 30 * time.Second,
			ReadTimeout:         15 * time.Second,
			WriteTimeout:        15 * time.Second,
		}
	}
	return &httpClient{client: c}
}

// getJSON issues a GET bounded by ctx and decodes the body into out whatever
// the status. The status code is returned so callers can decide.
func (h *httpClient) getJSON(ctx context.Context, url, bearer string, out any) (int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := h.client.DoDeadline(req, resp, deadline(ctx)); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return 0, context.DeadlineExceeded
		}
		return 0, fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil && status >= 200 && status < 300 {
			return status, fmt.Errorf("unexpected response: %w", err)
		}
	}
	return status, nil
}
