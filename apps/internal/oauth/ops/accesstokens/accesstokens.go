// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package accesstokens exposes a REST client for getting access tokens from the Microsoft identity
platform with a certificate credential.

These calls are of type "application/x-www-form-urlencoded".  This means we use url.Values to
represent arguments and then encode them into the POST body message.  We receive JSON in
return for the requests.  The request definition is defined in https://tools.ietf.org/html/rfc7521#section-4.2 .
*/
package accesstokens

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/authority"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/internal/grant"
)

const (
	grantType           = "grant_type"
	clientID            = "client_id"
	scope               = "scope"
	clientAssertion     = "client_assertion"
	clientAssertionType = "client_assertion_type"
)

// openid required to get an id token
// offline_access required to get a refresh token
// profile required to get the client_info field back
const defaultScopes = "openid profile offline_access"

type urlFormCaller interface {
	URLFormCall(ctx context.Context, endpoint string, qv url.Values, resp interface{}) error
}

// Client represents the REST calls to get tokens from token generator backends.
type Client struct {
	// Comm provides the HTTP transport client.
	Comm urlFormCaller
}

// AssertionRequest returns the form body of a client_credentials request authenticated by
// a client assertion. The OIDC scopes always prefix the caller's scope, which is kept verbatim.
func AssertionRequest(client, userScope, assertion string) url.Values {
	qv := url.Values{}
	qv.Set(clientAssertionType, grant.ClientAssertion)
	qv.Set(grantType, grant.ClientCredential)
	qv.Set(scope, Scope(userScope))
	qv.Set(clientAssertion, assertion)
	qv.Set(clientID, client)
	return qv
}

// Scope returns the scope parameter sent for userScope.
func Scope(userScope string) string {
	return defaultScopes + " " + userScope
}

// FromAssertion uses a signed client assertion to get an access token for authParams.Scope.
func (c Client) FromAssertion(ctx context.Context, authParams authority.AuthParams, assertion string) (TokenResponse, error) {
	qv := AssertionRequest(authParams.ClientID, authParams.Scope, assertion)

	resp := TokenResponse{}
	if err := c.Comm.URLFormCall(ctx, authParams.Endpoints.TokenEndpoint, qv, &resp); err != nil {
		return TokenResponse{}, classify(err)
	}
	if err := resp.Validate(); err != nil {
		return TokenResponse{}, err
	}
	return resp, nil
}

// classify turns a non-2xx reply into an *errors.AuthorizationError when the body is an OAuth2
// error and into an *errors.ProtocolError otherwise. Other errors pass through.
func classify(err error) error {
	var callErr tgerrors.CallErr
	if !errors.As(err, &callErr) {
		return err
	}

	var body authority.OAuthResponseBase
	if len(callErr.Body) > 0 && json.Unmarshal(callErr.Body, &body) == nil && body.HasError() {
		return newAuthorizationError(body, callErr)
	}
	return &tgerrors.ProtocolError{Err: callErr}
}

func newAuthorizationError(body authority.OAuthResponseBase, cause error) *tgerrors.AuthorizationError {
	return &tgerrors.AuthorizationError{
		Code:          body.Error,
		Description:   body.ErrorDescription,
		ErrorCodes:    body.ErrorCodes,
		CorrelationID: body.CorrelationID,
		Err:           cause,
	}
}
