// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package accesstokens

import (
	"bytes"
	"crypto/rsa"

	/* #nosec */
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
	"github.com/haha1903/tokengen-cert/apps/internal/oauth/ops/authority"
)

// DefaultLifetime is how long a client assertion is valid for.
const DefaultLifetime = 5 * time.Minute

// signingMethod signs assertions. Tests replace it.
var signingMethod jwt.SigningMethod = jwt.SigningMethodRS256

// Encoding selects how the header and payload segments and the x5t thumbprint are encoded.
// The signature segment is always base64url without padding.
type Encoding int

const (
	// EncodingURL is the JWT compact serialization: base64url without padding.
	EncodingURL Encoding = iota
	// EncodingLegacy is padded standard base64 for the header, payload and x5t. This is what
	// the first release of tokengen-cert sent and what Entra ID has been accepting.
	EncodingLegacy
)

func (e Encoding) String() string {
	switch e {
	case EncodingURL:
		return "base64url"
	case EncodingLegacy:
		return "legacy-base64"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

func (e Encoding) encode(b []byte) string {
	if e == EncodingLegacy {
		return base64.StdEncoding.EncodeToString(b)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// decodeSegment decodes a segment in any of the base64 flavors an assertion may carry.
func decodeSegment(seg string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var err error
	for _, enc := range encodings {
		var b []byte
		b, err = enc.DecodeString(seg)
		if err == nil {
			return b, nil
		}
	}
	return nil, err
}

// Header is the JOSE header of a client assertion.
type Header struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
	// Thumbprint is the x5t parameter: the SHA-1 of the certificate DER bytes.
	Thumbprint string `json:"x5t"`
}

// Payload holds the claims of a client assertion. Field order is the serialization order.
type Payload struct {
	Audience  string           `json:"aud"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	Issuer    string           `json:"iss"`
	ID        string           `json:"jti"`
	NotBefore *jwt.NumericDate `json:"nbf"`
	Subject   string           `json:"sub"`
}

// GetExpirationTime implements jwt.Claims.
func (p Payload) GetExpirationTime() (*jwt.NumericDate, error) { return p.ExpiresAt, nil }

// GetIssuedAt implements jwt.Claims. Assertions carry no iat.
func (p Payload) GetIssuedAt() (*jwt.NumericDate, error) { return nil, nil }

// GetNotBefore implements jwt.Claims.
func (p Payload) GetNotBefore() (*jwt.NumericDate, error) { return p.NotBefore, nil }

// GetIssuer implements jwt.Claims.
func (p Payload) GetIssuer() (string, error) { return p.Issuer, nil }

// GetSubject implements jwt.Claims.
func (p Payload) GetSubject() (string, error) { return p.Subject, nil }

// GetAudience implements jwt.Claims.
func (p Payload) GetAudience() (jwt.ClaimStrings, error) { return jwt.ClaimStrings{p.Audience}, nil }

// AssertionBuilder creates the signed JWT a confidential client presents instead of a secret.
// https://learn.microsoft.com/entra/identity-platform/certificate-credentials
// The zero value is ready to use.
type AssertionBuilder struct {
	// Host is the authority host the assertion is for. Empty means login.microsoftonline.com.
	Host string
	// Lifetime is exp - nbf. Zero means DefaultLifetime.
	Lifetime time.Duration
	Encoding Encoding
	// Clock provides nbf. Nil means the wall clock.
	Clock clockwork.Clock
}

// Build returns the compact serialization of an RS256 client assertion for clientID, signed with
// the RSA key in keyPEM and identified by the x5t thumbprint of the certificate in certPEM. The
// audience is the token endpoint of tenantID.
func (b AssertionBuilder) Build(certPEM, keyPEM []byte, tenantID, clientID string) (string, error) {
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return "", err
	}
	key, err := ParsePrivateKey(keyPEM)
	if err != nil {
		return "", err
	}

	jti, err := uuid.NewRandom()
	if err != nil {
		return "", &tgerrors.SigningError{Err: fmt.Errorf("could not generate jti: %w", err)}
	}

	now := b.clock().Now()
	header := Header{
		Algorithm:  signingMethod.Alg(),
		Type:       "JWT",
		Thumbprint: b.Encoding.encode(thumbprint(cert)),
	}
	payload := Payload{
		Audience:  authority.ResolveWithHost(b.Host, tenantID),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.lifetime())),
		Issuer:    clientID,
		ID:        jti.String(),
		NotBefore: jwt.NewNumericDate(now),
		Subject:   clientID,
	}

	hj, err := json.Marshal(header)
	if err != nil {
		return "", &tgerrors.SigningError{Err: fmt.Errorf("could not marshal header: %w", err)}
	}
	pj, err := json.Marshal(payload)
	if err != nil {
		return "", &tgerrors.SigningError{Err: fmt.Errorf("could not marshal payload: %w", err)}
	}

	signingString := b.Encoding.encode(hj) + "." + b.Encoding.encode(pj)
	sig, err := signingMethod.Sign(signingString, key)
	if err != nil {
		return "", &tgerrors.SigningError{Err: err}
	}
	return signingString + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

func (b AssertionBuilder) lifetime() time.Duration {
	if b.Lifetime <= 0 {
		return DefaultLifetime
	}
	return b.Lifetime
}

func (b AssertionBuilder) clock() clockwork.Clock {
	if b.Clock == nil {
		return clockwork.NewRealClock()
	}
	return b.Clock
}

// thumbprint runs the asn1.Der bytes through sha1 for use in the x5t parameter of JWT.
// https://tools.ietf.org/html/rfc7517#section-4.8
func thumbprint(cert *x509.Certificate) []byte {
	/* #nosec */
	a := sha1.Sum(cert.Raw)
	return a[:]
}

// ParseCertificate returns the first certificate in certPEM. Other PEM blocks, such as a private
// key kept in the same file, are skipped. Failures are *errors.CertificateParseError.
func ParseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, err := findBlock(certPEM, "CERTIFICATE")
	if err != nil {
		return nil, &tgerrors.CertificateParseError{Err: err}
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, &tgerrors.CertificateParseError{Err: fmt.Errorf("block labelled 'CERTIFICATE' could not be parsed by x509: %w", err)}
	}
	return cert, nil
}

// ParsePrivateKey returns the RSA private key in keyPEM, either PKCS#1 ("RSA PRIVATE KEY") or
// PKCS#8 ("PRIVATE KEY"). Failures are *errors.KeyParseError.
func ParsePrivateKey(keyPEM []byte) (*rsa.PrivateKey, error) {
	block, err := findBlock(keyPEM, "RSA PRIVATE KEY", "PRIVATE KEY")
	if err != nil {
		return nil, &tgerrors.KeyParseError{Err: err}
	}
	//nolint:staticcheck // legacy PEM encryption is detected only to reject it.
	if x509.IsEncryptedPEMBlock(block) {
		return nil, &tgerrors.KeyParseError{Err: errors.New("encrypted private keys are not supported")}
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem.EncodeToMemory(block))
	if err != nil {
		return nil, &tgerrors.KeyParseError{Err: err}
	}
	return key, nil
}

// findBlock returns the first PEM block in data with one of the types.
func findBlock(data []byte, types ...string) (*pem.Block, error) {
	rest := bytes.TrimSpace(data)
	if len(rest) == 0 {
		return nil, errors.New("no PEM data")
	}
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		for _, t := range types {
			if block.Type == t {
				return block, nil
			}
		}
	}
	return nil, fmt.Errorf("no PEM block of type %s found", strings.Join(types, " or "))
}

// VerifyAssertion checks a client assertion against the certificate in certPEM: the algorithm is
// RS256, x5t is the certificate thumbprint, the signature verifies with the certificate public key
// and exp is after nbf. Either segment encoding is accepted. Expiry is not checked against the
// current time.
func VerifyAssertion(assertion string, certPEM []byte) (Header, Payload, error) {
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return Header{}, Payload{}, err
	}

	parts := strings.Split(strings.TrimSpace(assertion), ".")
	if len(parts) != 3 {
		return Header{}, Payload{}, fmt.Errorf("assertion has %d segments, want 3", len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return Header{}, Payload{}, fmt.Errorf("assertion segment %d is empty", i)
		}
	}

	var header Header
	if err := decodeJSONSegment(parts[0], &header); err != nil {
		return Header{}, Payload{}, fmt.Errorf("header: %w", err)
	}
	var payload Payload
	if err := decodeJSONSegment(parts[1], &payload); err != nil {
		return Header{}, Payload{}, fmt.Errorf("payload: %w", err)
	}

	if header.Algorithm != jwt.SigningMethodRS256.Alg() {
		return header, payload, fmt.Errorf("header alg is %q, want %q", header.Algorithm, jwt.SigningMethodRS256.Alg())
	}
	x5t, err := decodeSegment(header.Thumbprint)
	if err != nil {
		return header, payload, fmt.Errorf("header x5t(%s) is not base64: %w", header.Thumbprint, err)
	}
	if !bytes.Equal(x5t, thumbprint(cert)) {
		return header, payload, errors.New("header x5t does not match the certificate thumbprint")
	}

	sig, err := decodeSegment(parts[2])
	if err != nil {
		return header, payload, fmt.Errorf("signature is not base64: %w", err)
	}
	if err := jwt.SigningMethodRS256.Verify(parts[0]+"."+parts[1], sig, cert.PublicKey); err != nil {
		return header, payload, fmt.Errorf("signature does not verify with the certificate public key: %w", err)
	}

	if payload.ExpiresAt == nil || payload.NotBefore == nil {
		return header, payload, errors.New("payload must have exp and nbf")
	}
	if !payload.ExpiresAt.After(payload.NotBefore.Time) {
		return header, payload, fmt.Errorf("exp(%v) is not after nbf(%v)", payload.ExpiresAt.Time, payload.NotBefore.Time)
	}
	return header, payload, nil
}

func decodeJSONSegment(seg string, v interface{}) error {
	b, err := decodeSegment(seg)
	if err != nil {
		return fmt.Errorf("not base64: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("not JSON: %w", err)
	}
	return nil
}
