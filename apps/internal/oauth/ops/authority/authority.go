// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package authority

import (
	"fmt"
	"strings"
)

const (
	tokenEndpoint = "https://%v/%v/oauth2/v2.0/token"
	defaultHost   = "login.microsoftonline.com"
)

var aadTrustedHostList = map[string]bool{
	"login.windows.net":            true, // Microsoft Azure Worldwide - Used in validation scenarios where host is not this list
	"login.chinacloudapi.cn":       true, // Microsoft Azure China
	"login.microsoftonline.de":     true, // Microsoft Azure Blackforest
	"login-us.microsoftonline.com": true, // Microsoft Azure US Government - Legacy
	"login.microsoftonline.us":     true, // Microsoft Azure US Government
	"login.microsoftonline.com":    true, // Microsoft Azure Worldwide
	"login.cloudgovapi.us":         true, // Microsoft Azure US Government
}

// TrustedHost checks if an AAD host is trusted/valid.
func TrustedHost(host string) bool {
	return aadTrustedHostList[strings.ToLower(host)]
}

// DefaultHost is the Azure public cloud authority host.
func DefaultHost() string {
	return defaultHost
}

// Resolve returns the v2.0 token endpoint of tenantID on login.microsoftonline.com. The tenant ID
// is not validated; a malformed one yields an endpoint the service rejects.
func Resolve(tenantID string) string {
	return ResolveWithHost(defaultHost, tenantID)
}

// ResolveWithHost is Resolve for another authority host. An empty host means the default host.
func ResolveWithHost(host, tenantID string) string {
	if host == "" {
		host = defaultHost
	}
	return fmt.Sprintf(tokenEndpoint, host, tenantID)
}

// OAuthResponseBase stores common information when sending a request to get a token.
type OAuthResponseBase struct {
	Error            string `json:"error"`
	SubError         string `json:"suberror"`
	ErrorDescription string `json:"error_description"`
	ErrorCodes       []int  `json:"error_codes"`
	CorrelationID    string `json:"correlation_id"`
	TraceID          string `json:"trace_id"`
	Timestamp        string `json:"timestamp"`
	Claims           string `json:"claims"`
}

// HasError reports if the identity provider returned an OAuth2 error.
func (o OAuthResponseBase) HasError() bool {
	return o.Error != ""
}

// Endpoints consists of the endpoints the token flow talks to.
type Endpoints struct {
	TokenEndpoint string
}

// NewEndpoints creates the Endpoints for tenantID on host.
func NewEndpoints(host, tenantID string) Endpoints {
	return Endpoints{TokenEndpoint: ResolveWithHost(host, tenantID)}
}

// AuthParams represents the parameters used for a client credential token request.
type AuthParams struct {
	Endpoints Endpoints
	TenantID  string
	ClientID  string
	// Scope is the caller supplied scope. The OIDC scopes are added when the request is assembled.
	Scope string
}

// NewAuthParams is the constructor for AuthParams.
func NewAuthParams(host, tenantID, clientID, scope string) AuthParams {
	return AuthParams{
		Endpoints: NewEndpoints(host, tenantID),
		TenantID:  tenantID,
		ClientID:  clientID,
		Scope:     scope,
	}
}
