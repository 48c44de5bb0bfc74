// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package accesstokens

import (
	"errors"

	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
	internalTime "github.com/haha1903/tokengen-cert/apps/internal/json/types/time"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/authority"
)

// TokenResponse is the information that is returned from a token endpoint during a token acquisition flow.
type TokenResponse struct {
	authority.OAuthResponseBase

	AccessToken  string                    `json:"access_token"`
	TokenType    string                    `json:"token_type"`
	ExpiresOn    internalTime.DurationTime `json:"expires_in"`
	ExtExpiresOn internalTime.DurationTime `json:"ext_expires_in"`
	Scope        string                    `json:"scope"`
}

// HasAccessToken checks if the TokenResponse has an access token.
func (tr TokenResponse) HasAccessToken() bool {
	return len(tr.AccessToken) > 0
}

// Validate validates the TokenResponse has basic valid values. An OAuth2 error in a 2xx reply is
// an *errors.AuthorizationError; a reply without an access token is an *errors.ProtocolError.
func (tr TokenResponse) Validate() error {
	if tr.HasError() {
		return newAuthorizationError(tr.OAuthResponseBase, nil)
	}
	if !tr.HasAccessToken() {
		return &tgerrors.ProtocolError{Err: errors.New("response is missing access_token")}
	}
	return nil
}
