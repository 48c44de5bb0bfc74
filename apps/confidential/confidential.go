// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package confidential provides a client for authentication of "confidential" applications that
prove their identity with a certificate. The client signs a short lived JWT client assertion with
the certificate's RSA private key and exchanges it for an access token at the Microsoft identity
platform token endpoint (the client credentials grant).

Tokens are not cached. Every call to AcquireTokenByCredential builds a new assertion and makes one
request.
*/
package confidential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
	"github.com/haha1903/tokengen-cert/apps/internal/logger"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/accesstokens"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/authority"
)

/*
Design note:

Credential keeps the PEM bytes or the paths to them, never the parsed key. Files are read on each
use, so a rotated key on disk is picked up without a new Client, and the parsed key only lives for
the duration of one assertion.
*/

// AuthenticationResult contains the results of one token acquisition operation.
type AuthenticationResult struct {
	AccessToken string
	// TokenType is normally "Bearer".
	TokenType    string
	ExpiresOn    time.Time
	ExtExpiresOn time.Time
	// GrantedScopes are the scopes the token endpoint reported, if it reported any.
	GrantedScopes []string
}

func newAuthResult(tr accesstokens.TokenResponse) AuthenticationResult {
	return AuthenticationResult{
		AccessToken:   tr.AccessToken,
		TokenType:     tr.TokenType,
		ExpiresOn:     tr.ExpiresOn.T,
		ExtExpiresOn:  tr.ExtExpiresOn.T,
		GrantedScopes: strings.Fields(tr.Scope),
	}
}

// Credential is a certificate and its RSA private key, PEM encoded. The key must be PKCS#1
// ("RSA PRIVATE KEY") or PKCS#8 ("PRIVATE KEY") and not encrypted. Certificate and key may be in
// the same PEM file.
type Credential struct {
	certPEM, keyPEM   []byte
	certPath, keyPath string
}

// NewCredFromPEM creates a Credential from PEM bytes already in memory.
func NewCredFromPEM(cert, key []byte) Credential {
	return Credential{certPEM: cert, keyPEM: key}
}

// NewCredFromFiles creates a Credential that reads the certificate and key from disk each time a
// token or assertion is requested. Read failures are *errors.IOError.
func NewCredFromFiles(certPath, keyPath string) Credential {
	return Credential{certPath: certPath, keyPath: keyPath}
}

func (c Credential) empty() bool {
	return len(c.certPEM) == 0 && len(c.keyPEM) == 0 && c.certPath == "" && c.keyPath == ""
}

// pem returns the certificate and key bytes. The key is read first.
func (c Credential) pem() (certPEM, keyPEM []byte, err error) {
	keyPEM = c.keyPEM
	if c.keyPath != "" {
		keyPEM, err = os.ReadFile(c.keyPath)
		if err != nil {
			return nil, nil, &tgerrors.IOError{Path: c.keyPath, Err: err}
		}
	}
	certPEM = c.certPEM
	if c.certPath != "" {
		certPEM, err = os.ReadFile(c.certPath)
		if err != nil {
			return nil, nil, &tgerrors.IOError{Path: c.certPath, Err: err}
		}
	}
	return certPEM, keyPEM, nil
}

// HTTPClient is the transport New() uses for the token request. *http.Client implements it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

// clientOptions are optional settings for New(). They are set with Option functions.
type clientOptions struct {
	httpClient    HTTPClient
	authorityHost string
	lifetime      time.Duration
	encoding      accesstokens.Encoding
	clock         clockwork.Clock
	logger        *logger.Logger
}

func (o clientOptions) validate() error {
	if o.lifetime < 0 {
		return fmt.Errorf("the assertion lifetime(%v) must not be negative", o.lifetime)
	}
	if o.authorityHost == "" {
		return nil
	}
	u, err := url.Parse("https://" + o.authorityHost)
	if err != nil || u.Host != o.authorityHost || u.Path != "" {
		return fmt.Errorf("the authority host(%s) must be a bare host name such as login.microsoftonline.com", o.authorityHost)
	}
	return nil
}

// Option is an optional argument to New().
type Option func(o *clientOptions)

// WithHTTPClient sets the transport for token requests. By default a pooled go-cleanhttp client
// is used.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithAuthorityHost sends token requests to host instead of login.microsoftonline.com, e.g.
// login.microsoftonline.us. The assertion audience follows. The host is not checked against the
// list of known Microsoft hosts.
func WithAuthorityHost(host string) Option {
	return func(o *clientOptions) {
		o.authorityHost = host
	}
}

// KnownAuthorityHost reports whether host is one of the Microsoft identity platform hosts of the
// public and national clouds.
func KnownAuthorityHost(host string) bool {
	return authority.TrustedHost(host)
}

// WithAssertionLifetime sets exp - nbf of each client assertion. The default is five minutes.
func WithAssertionLifetime(d time.Duration) Option {
	return func(o *clientOptions) {
		o.lifetime = d
	}
}

// WithLegacyEncoding encodes the assertion header, payload and x5t thumbprint in padded standard
// base64 instead of base64url. Use it only for compatibility with assertions produced by earlier
// releases.
func WithLegacyEncoding() Option {
	return func(o *clientOptions) {
		o.encoding = accesstokens.EncodingLegacy
	}
}

// WithClock sets the clock used for the nbf and exp claims.
func WithClock(clock clockwork.Clock) Option {
	return func(o *clientOptions) {
		o.clock = clock
	}
}

// Client is a confidential client for one application registration in one tenant.
// A Client is safe for concurrent use.
type Client struct {
	tenantID, clientID string
	cred               Credential

	token  *oauth.Client
	logger *logger.Logger
}

// New is the constructor for Client. tenantID is the directory (tenant) ID or domain, clientID
// the application (client) ID the certificate is registered with.
func New(tenantID, clientID string, cred Credential, options ...Option) (Client, error) {
	var missing []string
	if tenantID == "" {
		missing = append(missing, "tenant ID")
	}
	if clientID == "" {
		missing = append(missing, "client ID")
	}
	if cred.empty() {
		missing = append(missing, "credential")
	}
	if len(missing) > 0 {
		return Client{}, &tgerrors.ConfigurationError{Err: fmt.Errorf("missing %s", strings.Join(missing, ", "))}
	}

	opts := clientOptions{}
	for _, o := range options {
		o(&opts)
	}
	if err := opts.validate(); err != nil {
		return Client{}, &tgerrors.ConfigurationError{Err: err}
	}
	if opts.logger == nil {
		opts.logger = logger.New(nil)
	}

	builder := accesstokens.AssertionBuilder{
		Lifetime: opts.lifetime,
		Encoding: opts.encoding,
		Clock:    opts.clock,
	}
	return Client{
		tenantID: tenantID,
		clientID: clientID,
		cred:     cred,
		token:    oauth.New(opts.authorityHost, builder, opts.httpClient, opts.logger),
		logger:   opts.logger,
	}, nil
}

// Assertion returns a signed client assertion without contacting the token endpoint. Its audience
// is the token endpoint AcquireTokenByCredential posts to.
func (cca Client) Assertion(ctx context.Context) (string, error) {
	certPEM, keyPEM, err := cca.cred.pem()
	if err != nil {
		return "", err
	}
	return cca.token.Assertion(ctx, cca.token.AuthParams(cca.tenantID, cca.clientID, ""), certPEM, keyPEM)
}

// AcquireTokenByCredential acquires a security token from the authority, using the client credentials grant.
// scope is sent after the OpenID scopes "openid profile offline_access", verbatim.
func (cca Client) AcquireTokenByCredential(ctx context.Context, scope string) (AuthenticationResult, error) {
	certPEM, keyPEM, err := cca.cred.pem()
	if err != nil {
		return AuthenticationResult{}, err
	}

	token, err := cca.token.Credential(ctx, cca.token.AuthParams(cca.tenantID, cca.clientID, scope), certPEM, keyPEM)
	if err != nil {
		return AuthenticationResult{}, err
	}
	return newAuthResult(token), nil
}

// Header is the JOSE header of a client assertion.
type Header = accesstokens.Header

// Payload holds the claims of a client assertion.
type Payload = accesstokens.Payload

// Claims is a verified client assertion.
type Claims struct {
	Header  Header
	Payload Payload
}

// Verify checks that assertion is an RS256 client assertion signed by the key of the certificate
// in certPEM and carrying its thumbprint. Assertions in either encoding are accepted. Expiry is
// not checked.
func Verify(assertion string, certPEM []byte) (Claims, error) {
	if assertion == "" {
		return Claims{}, errors.New("assertion is empty")
	}
	header, payload, err := accesstokens.VerifyAssertion(assertion, certPEM)
	if err != nil {
		return Claims{}, err
	}
	return Claims{Header: header, Payload: payload}, nil
}
