package pageform

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

// HTTPTransport talks to a pagecms server using its JSON responses.
type HTTPTransport struct {
	BaseURL string
	APIKey  string // sent as a Bearer token
	Client  *http.Client
}

// NewHTTPTransport returns a transport for the server at baseURL.
func NewHTTPTransport(baseURL, apiKey string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Post sends an encoded form.
func (t *HTTPTransport) Post(ctx context.Context, endpoint string, p *Payload) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url(endpoint), bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", p.ContentType)
	return t.do(req)
}

// Delete issues a DELETE for path.
func (t *HTTPTransport) Delete(ctx context.Context, path string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.url(path), nil)
	if err != nil {
		return nil, err
	}
	return t.do(req)
}

// GetJSON fetches path and decodes the JSON body into out.
func (t *HTTPTransport) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url(path), nil)
	if err != nil {
		return err
	}
	body, code, err := t.roundTrip(req)
	if err != nil {
		return err
	}
	if code/100 != 2 {
		return statusError(code, body)
	}
	return json.Unmarshal(body, out)
}

func (t *HTTPTransport) url(path string) string {
	return t.BaseURL + "/" + strings.TrimLeft(path, "/")
}

func (t *HTTPTransport) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

func (t *HTTPTransport) roundTrip(req *http.Request) ([]byte, int, error) {
	req.Header.Set("Accept", "application/json")
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}
	resp, err := t.client().Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (t *HTTPTransport) do(req *http.Request) (*Response, error) {
	body, code, err := t.roundTrip(req)
	if err != nil {
		return nil, err
	}
	switch {
	case code == http.StatusUnprocessableEntity:
		var env struct {
			Errors map[string]string `json:"errors"`
		}
		if err := json.Unmarshal(body, &env); err != nil || len(env.Errors) == 0 {
			return nil, statusError(code, body)
		}
		return nil, &ValidationError{Fields: env.Errors}
	case code/100 == 2:
		var r Response
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &r); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return &r, nil
	}
	return nil, statusError(code, body)
}

func statusError(code int, body []byte) *StatusError {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &env) == nil {
		msg = env.Error
		if msg == "" {
			msg = env.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	return &StatusError{Code: code, Message: msg}
}
