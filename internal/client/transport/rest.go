package transport

import (
	"bytes"
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestClient talks to a PostgREST-style JSON API.
type RestClient struct {
	client *resty.Client
}

func NewRestClient(baseURL, apiKey string, timeout time.Duration) *RestClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetHeader("apikey", apiKey).SetAuthToken(apiKey)
	}
	return &RestClient{client: c}
}

func (c *RestClient) Do(ctx context.Context, op Operation) (Response, error) {
	req := c.client.R().SetContext(ctx)
	if len(op.Body) > 0 {
		req.SetHeader("Content-Type", "application/json").SetBody([]byte(op.Body))
	}
	if op.IsWrite() {
		req.SetHeader("Prefer", "return=representation")
	}

	resp, err := req.Execute(op.Method, op.Path)
	if err != nil {
		return Response{}, &NetworkError{Method: op.Method, Path: op.Path, Err: err}
	}

	body := resp.Body()
	if err := Classify(op, resp.StatusCode(), body); err != nil {
		return Response{}, err
	}

	out := Response{Status: resp.StatusCode()}
	if data := bytes.TrimSpace(body); len(data) > 0 {
		out.Data = append([]byte(nil), data...)
	}
	return out, nil
}
