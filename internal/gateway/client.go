package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from an upstream API. Message holds the most
// specific human-readable text found in the response body.
type APIError struct {
	Service string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.Status, e.Message)
}

type jsonClient struct {
	service string
	http    *http.Client
	headers map[string]string
}

func newJSONClient(service string, timeout time.Duration, headers map[string]string) *jsonClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &jsonClient{
		service: service,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		headers: headers,
	}
}

func (c *jsonClient) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", c.service, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", c.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Service: c.service, Status: resp.StatusCode, Message: ExtractErrorMessage(raw, resp.Status)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.service, err)
	}
	return nil
}

// ExtractErrorMessage digs the most useful message out of an upstream error
// body. Recognised shapes: {"errors":[{"detail"}]}, {"message"},
// {"error":{"message"}} and {"error":"..."}. Anything else falls back to the
// trimmed raw body, then to fallback.
func ExtractErrorMessage(raw []byte, fallback string) string {
	var body struct {
		Errors []struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"errors"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if len(body.Errors) > 0 {
			first := body.Errors[0]
			switch {
			case first.Detail != "":
				return first.Detail
			case first.Message != "":
				return first.Message
			case first.Code != "":
				return first.Code
			}
		}
		if body.Message != "" {
			return body.Message
		}
		if len(body.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if json.Unmarshal(body.Error, &plain) == nil && plain != "" {
				return plain
			}
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 300 {
		return text
	}
	return fallback
}
