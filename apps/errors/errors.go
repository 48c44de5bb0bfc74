// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package errors holds the error types returned by tokengen-cert. Every failure is fatal for a run,
so each type names the stage that failed and wraps the underlying cause for use with errors.Is()
and errors.As().
*/
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kylelemons/godebug/pretty"
)

var prettyConf = &pretty.Config{IncludeUnexported: false, SkipZeroFields: true, TrackCycles: true}

type verboser interface {
	Verbose() string
}

// Verbose prints the most verbose error that the error message has.
func Verbose(err error) string {
	var v verboser
	if errors.As(err, &v) {
		return err.Error() + "\n" + v.Verbose()
	}
	return err.Error()
}

// New is equivalent to errors.New().
func New(text string) error {
	return errors.New(text)
}

// CallErr represents an HTTP call error. Has a Verbose() method that allows getting the
// http.Request and Response objects. Implements error.
type CallErr struct {
	Req *http.Request
	// Resp contains response body
	Resp *http.Response
	// Body is the response body that was read before the error was returned.
	Body []byte
	Err  error
}

// Errors implements error.Error().
func (e CallErr) Error() string {
	return e.Err.Error()
}

// Unwrap implements errors.Unwrap().
func (e CallErr) Unwrap() error {
	return e.Err
}

// Verbose prints a versbose error message with the request or response.
func (e CallErr) Verbose() string {
	if e.Resp != nil {
		e.Resp.Request = nil // This brings in a bunch of TLS crap we don't need
		e.Resp.TLS = nil     // Same
	}
	return fmt.Sprintf("%s:\nRequest:\n%s\nResponse:\n%s", e.Err, prettyConf.Sprint(e.Req), prettyConf.Sprint(e.Resp))
}

// ConfigurationError is returned when a required input is missing or the configuration
// file cannot be parsed.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IOError is returned when the key or certificate file cannot be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("could not read %q: %s", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// KeyParseError is returned when the private key is not a PEM encoded RSA key.
type KeyParseError struct {
	Err error
}

func (e *KeyParseError) Error() string {
	return fmt.Sprintf("private key: %s", e.Err)
}

func (e *KeyParseError) Unwrap() error { return e.Err }

// CertificateParseError is returned when the certificate is not a PEM encoded x509 certificate.
type CertificateParseError struct {
	Err error
}

func (e *CertificateParseError) Error() string {
	return fmt.Sprintf("certificate: %s", e.Err)
}

func (e *CertificateParseError) Unwrap() error { return e.Err }

// SigningError is returned when the RS256 signature over the assertion could not be computed.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("unable to sign a JWT token using private key: %s", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// NetworkError is returned when the token request could not be sent or no reply was received.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("token request to %s failed: %s", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError is returned when the token endpoint replied with something that is not a
// token response: a non-2xx status without an OAuth2 error, a non-JSON body or a body
// without an access_token.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected token response: %s", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// AuthorizationError is returned when the identity provider answered with an OAuth2 error
// body, e.g. invalid_client for a bad assertion or invalid_scope.
type AuthorizationError struct {
	// Code is the OAuth2 "error" field.
	Code        string
	Description string
	// ErrorCodes are the AADSTS numeric codes.
	ErrorCodes    []int
	CorrelationID string
	// Err is the transport error, if the reply had a non-2xx status.
	Err error
}

func (e *AuthorizationError) Error() string {
	var sb strings.Builder
	sb.WriteString("identity provider rejected the request: ")
	sb.WriteString(e.Code)
	if e.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Description)
	}
	if e.CorrelationID != "" {
		fmt.Fprintf(&sb, " (correlation id %s)", e.CorrelationID)
	}
	return sb.String()
}

func (e *AuthorizationError) Unwrap() error { return e.Err }
