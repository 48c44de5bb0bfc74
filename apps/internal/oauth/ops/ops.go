// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package ops provides operations to the token backend using REST clients.

The REST type hands out the clients that talk to the identity platform.
Usage is simple:

	rest := ops.New(httpClient)

	// Exchanges a signed client assertion for an access token.
	tr, err := rest.AccessTokens().FromAssertion(ctx, authParams, assertion)
	if err != nil {
		// Do something
	}
*/
package ops

import (
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/accesstokens"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/internal/comm"
)

// HTTPClient represents an HTTP pipeline. *http.Client implements it.
type HTTPClient = comm.HTTPClient

// REST provides REST clients for communicating with the token backend.
type REST struct {
	client *comm.Client
}

// New is the constructor for REST. A nil httpClient uses a pooled go-cleanhttp client.
func New(httpClient HTTPClient) *REST {
	return &REST{client: comm.New(httpClient)}
}

// AccessTokens returns a client that can be used to get access tokens for
// authorization purposes.
func (r *REST) AccessTokens() accesstokens.Client {
	return accesstokens.Client{Comm: r.client}
}
