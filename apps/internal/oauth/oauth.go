// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package oauth runs the client credential flow: it builds a client assertion from a certificate
// and key and exchanges it for an access token at the tenant's token endpoint.
package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/haha1903/tokengen-cert/apps/internal/logger"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/accesstokens"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/authority"
)

type accessTokens interface {
	FromAssertion(ctx context.Context, authParams authority.AuthParams, assertion string) (accesstokens.TokenResponse, error)
}

type assertionBuilder interface {
	Build(certPEM, keyPEM []byte, tenantID, clientID string) (string, error)
}

// Client talks to the token endpoint of one authority host. The audience of every assertion it
// builds is the endpoint it posts the assertion to.
type Client struct {
	host         string
	builder      assertionBuilder
	accessTokens accessTokens
	logger       *logger.Logger
}

// New is the constructor for Client. host is the authority host, empty for login.microsoftonline.com.
// A nil httpClient uses a pooled go-cleanhttp client.
func New(host string, builder accesstokens.AssertionBuilder, httpClient ops.HTTPClient, log *logger.Logger) *Client {
	builder.Host = host
	return &Client{
		host:         host,
		builder:      builder,
		accessTokens: ops.New(httpClient).AccessTokens(),
		logger:       log,
	}
}

// AuthParams returns the parameters of a token request for clientID in tenantID.
func (c *Client) AuthParams(tenantID, clientID, scope string) authority.AuthParams {
	return authority.NewAuthParams(c.host, tenantID, clientID, scope)
}

// Assertion builds a signed client assertion without contacting the token endpoint.
func (c *Client) Assertion(ctx context.Context, authParams authority.AuthParams, certPEM, keyPEM []byte) (string, error) {
	assertion, err := c.builder.Build(certPEM, keyPEM, authParams.TenantID, authParams.ClientID)
	if err != nil {
		c.logger.Log(ctx, logger.Debug, "could not build client assertion", logger.Field("error", err.Error()))
		return "", err
	}
	c.logger.Log(ctx, logger.Debug, "built client assertion",
		logger.Field("client_id", authParams.ClientID),
		logger.Field("audience", authParams.Endpoints.TokenEndpoint),
	)
	return assertion, nil
}

// Credential acquires an access token for authParams.Scope with the certificate credential.
func (c *Client) Credential(ctx context.Context, authParams authority.AuthParams, certPEM, keyPEM []byte) (accesstokens.TokenResponse, error) {
	assertion, err := c.Assertion(ctx, authParams, certPEM, keyPEM)
	if err != nil {
		return accesstokens.TokenResponse{}, err
	}

	start := time.Now()
	c.logger.Log(ctx, logger.Debug, "requesting access token",
		logger.Field("endpoint", authParams.Endpoints.TokenEndpoint),
		logger.Field("scope", accesstokens.Scope(authParams.Scope)),
	)
	tr, err := c.accessTokens.FromAssertion(ctx, authParams, assertion)
	if err != nil {
		c.logger.Log(ctx, logger.Err, "token request failed",
			logger.Field("endpoint", authParams.Endpoints.TokenEndpoint),
			logger.Field("error", err.Error()),
		)
		return accesstokens.TokenResponse{}, fmt.Errorf("token request for client %s: %w", authParams.ClientID, err)
	}
	c.logger.Log(ctx, logger.Info, "acquired access token",
		logger.Field("token_type", tr.TokenType),
		logger.Field("expires_on", tr.ExpiresOn.T),
		logger.Field("elapsed", time.Since(start)),
	)
	return tr, nil
}
