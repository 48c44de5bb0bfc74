// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package comm provides helpers for communicating with HTTP backends.
package comm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/haha1903/tokengen-cert/apps/errors"
	"github.com/haha1903/tokengen-cert/internal/version"
)

// testID is set in tests to make the client-request-id header deterministic.
var testID string

// HTTPClient represents an HTTP pipeline. *http.Client implements it.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)

	// CloseIdleConnections closes any idle connections in a "keep-alive" state.
	CloseIdleConnections()
}

// Client provides a wrapper to our HTTPClient that handles compression and serialization needs.
type Client struct {
	client HTTPClient
}

// New returns a new Client object. A nil httpClient is replaced by a pooled go-cleanhttp client.
func New(httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	return &Client{client: httpClient}
}

// URLFormCall is used to make a call where we need to send application/x-www-form-urlencoded data
// to the backend and receive JSON back. qv will be encoded into the request body.
//
// Errors: a request that could not be sent or whose reply could not be read is a
// *errors.NetworkError, a non-2xx reply is an errors.CallErr carrying the reply body, and a 2xx
// reply that is not JSON is an *errors.ProtocolError.
func (c *Client) URLFormCall(ctx context.Context, endpoint string, qv url.Values, resp interface{}) error {
	if len(qv) == 0 {
		return fmt.Errorf("URLFormCall() requires qv to have non-zero length")
	}

	if err := c.checkResp(reflect.ValueOf(resp)); err != nil {
		return err
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("could not parse path URL(%s): %w", endpoint, err)
	}

	enc := qv.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(enc))
	if err != nil {
		return fmt.Errorf("could not create request for %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	addStdHeaders(req.Header)

	data, err := c.do(req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, resp); err != nil {
		return &errors.ProtocolError{Err: fmt.Errorf("json decode error: %w\njson message bytes were: %s", err, string(data))}
	}
	return nil
}

// do makes the HTTP call to the server and returns the contents of the body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	reply, err := c.client.Do(req)
	if err != nil {
		return nil, &errors.NetworkError{Endpoint: req.URL.String(), Err: err}
	}
	defer reply.Body.Close()

	data, err := c.readBody(reply)
	if err != nil {
		return nil, &errors.NetworkError{Endpoint: req.URL.String(), Err: err}
	}

	if reply.StatusCode/100 != 2 {
		sd := strings.TrimSpace(string(data))
		if sd != "" {
			// We probably have the error in the body.
			return nil, errors.CallErr{
				Req:  req,
				Resp: reply,
				Body: data,
				Err:  fmt.Errorf("http call(%s)(%s) error: reply status code was %d:\n%s", req.URL.String(), req.Method, reply.StatusCode, sd),
			}
		}
		return nil, errors.CallErr{
			Req:  req,
			Resp: reply,
			Err:  fmt.Errorf("http call(%s)(%s) error: reply status code was %d", req.URL.String(), req.Method, reply.StatusCode),
		}
	}

	return data, nil
}

// checkResp checks a response object o make sure it is a pointer to a struct.
func (c *Client) checkResp(v reflect.Value) error {
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("bug: resp argument must a *struct, was %T", v.Interface())
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("bug: resp argument must be a *struct, was %T", v.Interface())
	}
	return nil
}

// readBody reads the body out of an *http.Response. It supports gzip encoded responses.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "":
		// Do nothing
	case "gzip":
		gz, err := gzipDecompress(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader error: %w", err)
		}
		defer gz.Close()
		reader = gz
	default:
		return nil, fmt.Errorf("bug: comm.Client.readBody(): content was sent with unsupported content-encoding %s", resp.Header.Get("Content-Encoding"))
	}
	return io.ReadAll(reader)
}

func addStdHeaders(headers http.Header) http.Header {
	headers.Set("Accept-Encoding", "gzip")
	// So that I can have a static id for tests.
	if testID != "" {
		headers.Set("client-request-id", testID)
		headers.Set("Return-Client-Request-Id", "false")
	} else {
		headers.Set("client-request-id", uuid.New().String())
		headers.Set("Return-Client-Request-Id", "false")
	}
	headers.Set("x-client-sku", "tokengen-cert")
	headers.Set("x-client-os", runtime.GOOS)
	headers.Set("x-client-cpu", runtime.GOARCH)
	headers.Set("x-client-ver", version.Version)
	return headers
}
