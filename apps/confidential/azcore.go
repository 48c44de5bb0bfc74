// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package confidential

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// TokenCredential adapts the client for Azure SDK clients. Each GetToken call acquires a new
// token for the requested scopes joined by spaces; azcore's bearer token policy caches it.
func (cca Client) TokenCredential() azcore.TokenCredential {
	return tokenCredential{cca: cca}
}

type tokenCredential struct {
	cca Client
}

// GetToken implements azcore.TokenCredential.
func (t tokenCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	res, err := t.cca.AcquireTokenByCredential(ctx, strings.Join(opts.Scopes, " "))
	if err != nil {
		return azcore.AccessToken{}, err
	}
	return azcore.AccessToken{Token: res.AccessToken, ExpiresOn: res.ExpiresOn}, nil
}
