// Package client provides methods to do http GET / POST request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	defaultTimeout = 60 // seconds

	maxIdleConns          int   = 100
	maxIdleConnsPerHost   int   = 10
	maxConnsPerHost       int   = 50
	idleConnTimeout       int   = 90
	maxReadContentLength  int64 = 1024 * 1024 * 10 // 10M
	authorizationHeader         = "Authorization"
	bearerPrefix                = "Bearer "
	contentTypeHeader           = "Content-Type"
	contentTypeApplication      = "application/json"
)

var httpClient = createHTTPClient()

// createHTTPClient for connection re-use
func createHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxConnsPerHost:     maxConnsPerHost,
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
			IdleConnTimeout:     time.Duration(idleConnTimeout) * time.Second,
		},
	}
}

// BearerHeaders authorization headers of token
func BearerHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{authorizationHeader: bearerPrefix + token}
}

// HTTPGet http get
func HTTPGet(url string, params, headers map[string]string, timeout int) (*http.Response, error) {
	return doRequest(http.MethodGet, url, nil, params, headers, timeout)
}

// HTTPPost http post with json body
func HTTPPost(url string, body interface{}, params, headers map[string]string, timeout int) (*http.Response, error) {
	return doRequest(http.MethodPost, url, body, params, headers, timeout)
}

func doRequest(method, url string, body interface{}, params, headers map[string]string, timeoutSeconds int) (*http.Response, error) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			cancel()
			return nil, err
		}
		reader = bytes.NewReader(jsonData)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		cancel()
		return nil, err
	}
	if body != nil {
		req.Header.Set(contentTypeHeader, contentTypeApplication)
	}
	if params != nil {
		q := req.URL.Query()
		for key, val := range params {
			q.Add(key, val)
		}
		req.URL.RawQuery = q.Encode()
	}
	for key, val := range headers {
		req.Header.Add(key, val)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// StatusError non 2xx response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wrong response status %v. message: %v", e.StatusCode, e.Body)
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadContentLength))
	if err != nil {
		return nil, fmt.Errorf("read body error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	return body, nil
}
