// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package confidential

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/pkcs12"

	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
)

// NewCredFromPFX creates a Credential from a PKCS#12 (.pfx, .p12) bundle holding exactly one
// certificate and its RSA private key. Only the legacy PKCS#12 ciphers (3DES, RC2) are supported;
// export bundles with "openssl pkcs12 -export -legacy" or convert them to PEM first.
func NewCredFromPFX(pfxData []byte, password string) (Credential, error) {
	key, cert, err := pkcs12.Decode(pfxData, password)
	if err != nil {
		return Credential{}, &tgerrors.CertificateParseError{Err: fmt.Errorf("PFX data could not be decoded: %w", err)}
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return Credential{}, &tgerrors.KeyParseError{Err: fmt.Errorf("PFX private key is %T, only RSA keys are supported", key)}
	}
	if cert == nil {
		return Credential{}, &tgerrors.CertificateParseError{Err: errors.New("PFX data has no certificate")}
	}

	der, err := x509.MarshalPKCS8PrivateKey(rsaKey)
	if err != nil {
		return Credential{}, &tgerrors.KeyParseError{Err: err}
	}
	return NewCredFromPEM(
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}),
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}),
	), nil
}
