// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package mock

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"time"
)

// KeyFormat is the PEM encoding of a generated private key.
type KeyFormat int

const (
	PKCS8 KeyFormat = iota
	PKCS1
)

// Credential is a self-signed certificate and the private key it was made from.
type Credential struct {
	Cert    *x509.Certificate
	Key     *rsa.PrivateKey
	CertPEM []byte
	KeyPEM  []byte
}

var (
	once   sync.Once
	cached Credential
)

// Cert returns a self-signed RSA certificate with a PKCS8 key. It is generated once per test binary.
func Cert() Credential {
	once.Do(func() {
		cached = NewCert("tokengen-cert test", PKCS8)
	})
	return cached
}

// NewCert generates a new self-signed RSA certificate for cn. It panics on failure, which only
// happens when the system random source is broken.
func NewCert(cn string, format KeyFormat) Credential {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}

	der := selfSign(cn, &key.PublicKey, key)
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		panic(err)
	}

	var keyBlock *pem.Block
	switch format {
	case PKCS1:
		keyBlock = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	default:
		b, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			panic(err)
		}
		keyBlock = &pem.Block{Type: "PRIVATE KEY", Bytes: b}
	}

	return Credential{
		Cert:    cert,
		Key:     key,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(keyBlock),
	}
}

// ECKeyPEM returns a PKCS8 encoded P-256 key, which is not usable for RS256.
func ECKeyPEM() []byte {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}
	b, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		panic(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: b})
}

func selfSign(cn string, pub *rsa.PublicKey, key *rsa.PrivateKey) []byte {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		panic(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, key)
	if err != nil {
		panic(err)
	}
	return der
}
