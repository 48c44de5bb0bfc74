// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package confidential

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts the client to golang.org/x/oauth2. Every Token call acquires a new token for
// scope with ctx; wrap it in oauth2.ReuseTokenSource to reuse tokens until they expire.
func (cca Client) TokenSource(ctx context.Context, scope string) oauth2.TokenSource {
	return tokenSource{ctx: ctx, cca: cca, scope: scope}
}

type tokenSource struct {
	ctx   context.Context
	cca   Client
	scope string
}

// Token implements oauth2.TokenSource.
func (ts tokenSource) Token() (*oauth2.Token, error) {
	res, err := ts.cca.AcquireTokenByCredential(ts.ctx, ts.scope)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		Expiry:      res.ExpiresOn,
	}, nil
}
