// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package mock provides fakes shared by the tests of this module: an HTTP client that replays
// canned responses, token endpoint bodies and freshly generated certificate/key pairs.
package mock

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

type response struct {
	body     []byte
	callback func(*http.Request)
	code     int
	headers  http.Header
	err      error
}

// ResponseOption configures one canned response of Client.
type ResponseOption interface {
	apply(*response)
}

type respOpt func(*response)

func (fn respOpt) apply(r *response) {
	fn(r)
}

// WithBody sets the HTTP response's body to the specified value.
func WithBody(b []byte) ResponseOption {
	return respOpt(func(r *response) {
		r.body = b
	})
}

// WithCallback sets a callback to invoke before returning the response.
func WithCallback(callback func(*http.Request)) ResponseOption {
	return respOpt(func(r *response) {
		r.callback = callback
	})
}

// WithHTTPHeader sets the HTTP headers of the response to the specified value.
func WithHTTPHeader(header http.Header) ResponseOption {
	return respOpt(func(r *response) {
		r.headers = header
	})
}

// WithHTTPStatusCode sets the HTTP statusCode of response to the specified value.
func WithHTTPStatusCode(statusCode int) ResponseOption {
	return respOpt(func(r *response) {
		r.code = statusCode
	})
}

// WithError makes Do fail with err instead of returning a response.
func WithError(err error) ResponseOption {
	return respOpt(func(r *response) {
		r.err = err
	})
}

// Client is a mock HTTP client that returns a sequence of responses. Use AppendResponse to specify the sequence.
type Client struct {
	mu       sync.Mutex
	resp     []response
	requests []*http.Request
	bodies   [][]byte
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) AppendResponse(opts ...ResponseOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := response{code: http.StatusOK, headers: http.Header{}}
	for _, o := range opts {
		o.apply(&r)
	}
	c.resp = append(c.resp, r)
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.resp) == 0 {
		panic(fmt.Sprintf(`no response for "%s"`, req.URL.String()))
	}
	resp := c.resp[0]
	c.resp = c.resp[1:]

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}
	c.requests = append(c.requests, req)
	c.bodies = append(c.bodies, body)

	if resp.callback != nil {
		resp.callback(req)
	}
	if resp.err != nil {
		return nil, resp.err
	}
	res := http.Response{Header: resp.headers, StatusCode: resp.code, Request: req}
	res.Body = io.NopCloser(bytes.NewReader(resp.body))
	return &res, nil
}

// CloseIdleConnections implements the comm.HTTPClient interface
func (*Client) CloseIdleConnections() {}

// Requests returns the requests Do received, in order.
func (c *Client) Requests() []*http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*http.Request(nil), c.requests...)
}

// Bodies returns the request bodies Do received, in order.
func (c *Client) Bodies() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.bodies...)
}

// GetAccessTokenBody returns a token endpoint reply.
func GetAccessTokenBody(accessToken string, expiresIn int) []byte {
	return []byte(fmt.Sprintf(
		`{"token_type": "Bearer","expires_in": %d,"ext_expires_in": %d,"access_token": "%s"}`,
		expiresIn, expiresIn, accessToken,
	))
}

// GetErrorBody returns a token endpoint OAuth2 error reply.
func GetErrorBody(code, description string, aadCode int) []byte {
	return []byte(fmt.Sprintf(
		`{"error": "%s","error_description": "%s","error_codes": [%d],"timestamp": "%s","trace_id": "trace","correlation_id": "corr"}`,
		code, description, aadCode, time.Now().UTC().Format("2006-01-02 15:04:05Z"),
	))
}
