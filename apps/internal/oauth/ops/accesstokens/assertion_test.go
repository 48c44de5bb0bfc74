// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package accesstokens

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/kylelemons/godebug/pretty"

	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
	"github.com/haha1903/tokengen-cert/internal/mock"
)

const (
	testTenant   = "t1"
	testClient   = "c1"
	testAudience = "https://login.microsoftonline.com/t1/oauth2/v2.0/token"
)

func TestBuildCompactSerialization(t *testing.T) {
	pkcs1 := mock.NewCert("pkcs1", mock.PKCS1)
	pkcs8 := mock.Cert()

	tests := []struct {
		desc     string
		cred     mock.Credential
		encoding Encoding
	}{
		{desc: "PKCS8 key, base64url", cred: pkcs8, encoding: EncodingURL},
		{desc: "PKCS1 key, base64url", cred: pkcs1, encoding: EncodingURL},
		{desc: "PKCS8 key, legacy", cred: pkcs8, encoding: EncodingLegacy},
		{desc: "PKCS1 key, legacy", cred: pkcs1, encoding: EncodingLegacy},
	}

	for _, test := range tests {
		b := AssertionBuilder{Encoding: test.encoding}
		got, err := b.Build(test.cred.CertPEM, test.cred.KeyPEM, testTenant, testClient)
		if err != nil {
			t.Errorf("TestBuildCompactSerialization(%s): got err == %s, want err == nil", test.desc, err)
			continue
		}

		if n := strings.Count(got, "."); n != 2 {
			t.Errorf("TestBuildCompactSerialization(%s): got %d '.' separators, want 2", test.desc, n)
			continue
		}
		parts := strings.Split(got, ".")
		for i, p := range parts {
			if p == "" {
				t.Errorf("TestBuildCompactSerialization(%s): segment %d is empty", test.desc, i)
			}
		}

		// The signature is RSASSA-PKCS1-v1_5 with SHA-256 over the first two segments.
		sig, err := base64.RawURLEncoding.DecodeString(parts[2])
		if err != nil {
			t.Errorf("TestBuildCompactSerialization(%s): signature is not unpadded base64url: %s", test.desc, err)
			continue
		}
		digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
		pub := test.cred.Cert.PublicKey.(*rsa.PublicKey)
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
			t.Errorf("TestBuildCompactSerialization(%s): signature did not verify: %s", test.desc, err)
		}
	}
}

func TestBuildHeader(t *testing.T) {
	cred := mock.Cert()
	sum := sha1.Sum(cred.Cert.Raw)

	tests := []struct {
		desc     string
		encoding Encoding
		decode   *base64.Encoding
		want     Header
	}{
		{
			desc:     "base64url",
			encoding: EncodingURL,
			decode:   base64.RawURLEncoding,
			want:     Header{Algorithm: "RS256", Type: "JWT", Thumbprint: base64.RawURLEncoding.EncodeToString(sum[:])},
		},
		{
			desc:     "legacy",
			encoding: EncodingLegacy,
			decode:   base64.StdEncoding,
			want:     Header{Algorithm: "RS256", Type: "JWT", Thumbprint: base64.StdEncoding.EncodeToString(sum[:])},
		},
	}

	for _, test := range tests {
		got, err := AssertionBuilder{Encoding: test.encoding}.Build(cred.CertPEM, cred.KeyPEM, testTenant, testClient)
		if err != nil {
			t.Fatalf("TestBuildHeader(%s): %s", test.desc, err)
		}
		seg := strings.Split(got, ".")[0]
		b, err := test.decode.DecodeString(seg)
		if err != nil {
			t.Errorf("TestBuildHeader(%s): header segment did not decode with %v: %s", test.desc, test.encoding, err)
			continue
		}

		var header Header
		if err := json.Unmarshal(b, &header); err != nil {
			t.Errorf("TestBuildHeader(%s): header is not JSON: %s", test.desc, err)
			continue
		}
		if diff := pretty.Compare(test.want, header); diff != "" {
			t.Errorf("TestBuildHeader(%s): -want/+got:\n%s", test.desc, diff)
		}

		wantJSON := fmt.Sprintf(`{"alg":"RS256","typ":"JWT","x5t":"%s"}`, test.want.Thumbprint)
		if string(b) != wantJSON {
			t.Errorf("TestBuildHeader(%s): got header JSON %s, want %s", test.desc, b, wantJSON)
		}
	}
}

func TestBuildPayload(t *testing.T) {
	cred := mock.Cert()
	now := time.Now().Truncate(time.Second)
	clock := clockwork.NewFakeClockAt(now)

	tests := []struct {
		desc     string
		lifetime time.Duration
		want     time.Duration
	}{
		{desc: "default lifetime", want: 5 * time.Minute},
		{desc: "ten minutes", lifetime: 10 * time.Minute, want: 10 * time.Minute},
	}

	for _, test := range tests {
		b := AssertionBuilder{Lifetime: test.lifetime, Clock: clock}
		got, err := b.Build(cred.CertPEM, cred.KeyPEM, testTenant, testClient)
		if err != nil {
			t.Fatalf("TestBuildPayload(%s): %s", test.desc, err)
		}

		p, err := base64.RawURLEncoding.DecodeString(strings.Split(got, ".")[1])
		if err != nil {
			t.Fatalf("TestBuildPayload(%s): %s", test.desc, err)
		}
		var payload Payload
		if err := json.Unmarshal(p, &payload); err != nil {
			t.Fatalf("TestBuildPayload(%s): %s", test.desc, err)
		}

		if payload.Audience != testAudience {
			t.Errorf("TestBuildPayload(%s): got aud %q, want %q", test.desc, payload.Audience, testAudience)
		}
		if payload.Issuer != testClient || payload.Subject != testClient {
			t.Errorf("TestBuildPayload(%s): got iss %q sub %q, want both %q", test.desc, payload.Issuer, payload.Subject, testClient)
		}
		if !payload.NotBefore.Time.Equal(now) {
			t.Errorf("TestBuildPayload(%s): got nbf %v, want %v", test.desc, payload.NotBefore.Time, now)
		}
		if d := payload.ExpiresAt.Sub(payload.NotBefore.Time); d != test.want {
			t.Errorf("TestBuildPayload(%s): got exp - nbf == %v, want %v", test.desc, d, test.want)
		}
		if payload.ID == "" {
			t.Errorf("TestBuildPayload(%s): got empty jti", test.desc)
		}

		// exp and nbf are JSON numbers, not strings.
		var raw map[string]interface{}
		if err := json.Unmarshal(p, &raw); err != nil {
			t.Fatalf("TestBuildPayload(%s): %s", test.desc, err)
		}
		for _, k := range []string{"exp", "nbf"} {
			if _, ok := raw[k].(float64); !ok {
				t.Errorf("TestBuildPayload(%s): %s is %T, want a number", test.desc, k, raw[k])
			}
		}
	}
}

func TestBuildUniqueJTI(t *testing.T) {
	cred := mock.Cert()
	b := AssertionBuilder{}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		a, err := b.Build(cred.CertPEM, cred.KeyPEM, testTenant, testClient)
		if err != nil {
			t.Fatalf("TestBuildUniqueJTI: %s", err)
		}
		_, payload, err := VerifyAssertion(a, cred.CertPEM)
		if err != nil {
			t.Fatalf("TestBuildUniqueJTI: %s", err)
		}
		if seen[payload.ID] {
			t.Errorf("TestBuildUniqueJTI: jti %q was reused", payload.ID)
		}
		seen[payload.ID] = true
	}
}

func TestBuildVerifiesWithJWTLibraries(t *testing.T) {
	cred := mock.Cert()
	got, err := AssertionBuilder{}.Build(cred.CertPEM, cred.KeyPEM, testTenant, testClient)
	if err != nil {
		t.Fatalf("TestBuildVerifiesWithJWTLibraries: %s", err)
	}

	// golang-jwt validates the registered claims as well as the signature.
	claims := &Payload{}
	_, err = jwt.ParseWithClaims(
		got,
		claims,
		func(*jwt.Token) (interface{}, error) { return cred.Cert.PublicKey, nil },
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(testAudience),
		jwt.WithIssuer(testClient),
		jwt.WithSubject(testClient),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		t.Errorf("TestBuildVerifiesWithJWTLibraries(golang-jwt): %s", err)
	}

	jws, err := jose.ParseSigned(got, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		t.Fatalf("TestBuildVerifiesWithJWTLibraries(go-jose): parse: %s", err)
	}
	if _, err := jws.Verify(cred.Cert.PublicKey); err != nil {
		t.Errorf("TestBuildVerifiesWithJWTLibraries(go-jose): verify: %s", err)
	}
}

func TestBuildErrors(t *testing.T) {
	cred := mock.Cert()
	corrupted := []byte(strings.Replace(string(cred.KeyPEM), "MII", "xxx", 1))

	tests := []struct {
		desc    string
		certPEM []byte
		keyPEM  []byte
		wantKey bool
	}{
		{desc: "corrupted key", certPEM: cred.CertPEM, keyPEM: corrupted, wantKey: true},
		{desc: "key is not PEM", certPEM: cred.CertPEM, keyPEM: []byte("not a key"), wantKey: true},
		{desc: "empty key", certPEM: cred.CertPEM, keyPEM: nil, wantKey: true},
		{desc: "EC key", certPEM: cred.CertPEM, keyPEM: mock.ECKeyPEM(), wantKey: true},
		{desc: "certificate in key file", certPEM: cred.CertPEM, keyPEM: cred.CertPEM, wantKey: true},
		{desc: "certificate is not PEM", certPEM: []byte("not a cert"), keyPEM: cred.KeyPEM},
		{desc: "key in certificate file", certPEM: cred.KeyPEM, keyPEM: cred.KeyPEM},
		{desc: "certificate DER is garbage", certPEM: []byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"), keyPEM: cred.KeyPEM},
	}

	for _, test := range tests {
		_, err := AssertionBuilder{}.Build(test.certPEM, test.keyPEM, testTenant, testClient)
		if err == nil {
			t.Errorf("TestBuildErrors(%s): got err == nil, want err != nil", test.desc)
			continue
		}

		var keyErr *tgerrors.KeyParseError
		var certErr *tgerrors.CertificateParseError
		switch {
		case test.wantKey && !errors.As(err, &keyErr):
			t.Errorf("TestBuildErrors(%s): got %T(%s), want *errors.KeyParseError", test.desc, err, err)
		case !test.wantKey && !errors.As(err, &certErr):
			t.Errorf("TestBuildErrors(%s): got %T(%s), want *errors.CertificateParseError", test.desc, err, err)
		}
	}
}

func TestBuildCombinedPEM(t *testing.T) {
	cred := mock.Cert()
	combined := append(append([]byte{}, cred.KeyPEM...), cred.CertPEM...)

	got, err := AssertionBuilder{}.Build(combined, combined, testTenant, testClient)
	if err != nil {
		t.Fatalf("TestBuildCombinedPEM: got err == %s, want err == nil", err)
	}
	if _, _, err := VerifyAssertion(got, cred.CertPEM); err != nil {
		t.Errorf("TestBuildCombinedPEM: %s", err)
	}
}

func TestBuildHostAudience(t *testing.T) {
	cred := mock.Cert()
	got, err := AssertionBuilder{Host: "login.microsoftonline.us"}.Build(cred.CertPEM, cred.KeyPEM, testTenant, testClient)
	if err != nil {
		t.Fatalf("TestBuildHostAudience: %s", err)
	}
	_, payload, err := VerifyAssertion(got, cred.CertPEM)
	if err != nil {
		t.Fatalf("TestBuildHostAudience: %s", err)
	}
	if want := "https://login.microsoftonline.us/t1/oauth2/v2.0/token"; payload.Audience != want {
		t.Errorf("TestBuildHostAudience: got aud %q, want %q", payload.Audience, want)
	}
}

func TestVerifyAssertion(t *testing.T) {
	cred := mock.Cert()
	other := mock.NewCert("other", mock.PKCS8)

	urlAssertion, err := AssertionBuilder{}.Build(cred.CertPEM, cred.KeyPEM, testTenant, testClient)
	if err != nil {
		t.Fatal(err)
	}
	legacyAssertion, err := AssertionBuilder{Encoding: EncodingLegacy}.Build(cred.CertPEM, cred.KeyPEM, testTenant, testClient)
	if err != nil {
		t.Fatal(err)
	}
	// Signed by the other key but claiming this certificate's thumbprint.
	forged, err := AssertionBuilder{}.Build(cred.CertPEM, other.KeyPEM, testTenant, testClient)
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(urlAssertion, ".")
	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"aud":"x","iss":"evil"}`)) + "." + parts[2]

	tests := []struct {
		desc      string
		assertion string
		certPEM   []byte
		err       bool
	}{
		{desc: "base64url", assertion: urlAssertion, certPEM: cred.CertPEM},
		{desc: "legacy", assertion: legacyAssertion, certPEM: cred.CertPEM},
		{desc: "Error: other certificate", assertion: urlAssertion, certPEM: other.CertPEM, err: true},
		{desc: "Error: forged signature", assertion: forged, certPEM: cred.CertPEM, err: true},
		{desc: "Error: tampered payload", assertion: tampered, certPEM: cred.CertPEM, err: true},
		{desc: "Error: two segments", assertion: parts[0] + "." + parts[1], certPEM: cred.CertPEM, err: true},
		{desc: "Error: empty segment", assertion: parts[0] + ".." + parts[2], certPEM: cred.CertPEM, err: true},
	}

	for _, test := range tests {
		header, payload, err := VerifyAssertion(test.assertion, test.certPEM)
		switch {
		case err == nil && test.err:
			t.Errorf("TestVerifyAssertion(%s): got err == nil, want err != nil", test.desc)
			continue
		case err != nil && !test.err:
			t.Errorf("TestVerifyAssertion(%s): got err == %s, want err == nil", test.desc, err)
			continue
		case err != nil:
			continue
		}

		if header.Algorithm != "RS256" || header.Type != "JWT" {
			t.Errorf("TestVerifyAssertion(%s): got header %+v", test.desc, header)
		}
		if payload.Issuer != testClient || payload.Audience != testAudience {
			t.Errorf("TestVerifyAssertion(%s): got payload %+v", test.desc, payload)
		}
	}
}

func TestEncodingString(t *testing.T) {
	tests := []struct {
		e    Encoding
		want string
	}{
		{EncodingURL, "base64url"},
		{EncodingLegacy, "legacy-base64"},
		{Encoding(7), "Encoding(7)"},
	}
	for _, test := range tests {
		if got := test.e.String(); got != test.want {
			t.Errorf("TestEncodingString: got %q, want %q", got, test.want)
		}
	}
}

// failingSigner is an RS256 method whose Sign always fails.
type failingSigner struct {
	jwt.SigningMethod
	err error
}

func (f failingSigner) Sign(signingString string, key interface{}) ([]byte, error) {
	return nil, f.err
}

func TestBuildSigningError(t *testing.T) {
	signErr := errors.New("hsm unavailable")
	orig := signingMethod
	signingMethod = failingSigner{SigningMethod: jwt.SigningMethodRS256, err: signErr}
	defer func() { signingMethod = orig }()

	cred := mock.Cert()
	got, err := AssertionBuilder{}.Build(cred.CertPEM, cred.KeyPEM, testTenant, testClient)
	if err == nil {
		t.Fatalf("TestBuildSigningError: got assertion %q, want err != nil", got)
	}
	var se *tgerrors.SigningError
	if !errors.As(err, &se) {
		t.Errorf("TestBuildSigningError: got err %T(%s), want *errors.SigningError", err, err)
	}
	if !errors.Is(err, signErr) {
		t.Errorf("TestBuildSigningError: signer error is not in the chain: %s", err)
	}
	if got != "" {
		t.Errorf("TestBuildSigningError: got assertion %q, want empty", got)
	}
}
