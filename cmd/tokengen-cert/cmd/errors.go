// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
)

// Exit codes, one per failure stage.
const (
	ExitSuccess       = 0
	ExitGeneral       = 1 // Unknown/unhandled error, including failed verification
	ExitConfig        = 2 // Missing or invalid input
	ExitIO            = 3 // Key or certificate file unreadable
	ExitParse         = 4 // Key or certificate not usable
	ExitSigning       = 5
	ExitNetwork       = 6
	ExitProtocol      = 7 // Unexpected reply from the token endpoint
	ExitAuthorization = 8 // Token endpoint rejected the request
)

var (
	errFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	hintFmt = color.New(color.FgYellow).SprintFunc()
)

func configErrorf(format string, args ...interface{}) error {
	return &tgerrors.ConfigurationError{Err: fmt.Errorf(format, args...)}
}

// exitCode maps err to the exit code of the stage that failed.
func exitCode(err error) int {
	var (
		cfgErr     *tgerrors.ConfigurationError
		ioErr      *tgerrors.IOError
		keyErr     *tgerrors.KeyParseError
		certErr    *tgerrors.CertificateParseError
		signErr    *tgerrors.SigningError
		authErr    *tgerrors.AuthorizationError
		protoErr   *tgerrors.ProtocolError
		networkErr *tgerrors.NetworkError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &ioErr):
		return ExitIO
	case errors.As(err, &keyErr), errors.As(err, &certErr):
		return ExitParse
	case errors.As(err, &signErr):
		return ExitSigning
	case errors.As(err, &authErr):
		return ExitAuthorization
	case errors.As(err, &protoErr):
		return ExitProtocol
	case errors.As(err, &networkErr):
		return ExitNetwork
	}
	return ExitGeneral
}

// hint returns a remediation hint for err, or "".
func hint(err error) string {
	switch exitCode(err) {
	case ExitConfig:
		return "Pass the missing values as flags or add them to the config file (see --help)"
	case ExitIO:
		return "Check --key-path and --cert-path"
	case ExitParse:
		return "The key must be an unencrypted PEM encoded RSA key (PKCS#1 or PKCS#8) and the certificate PEM encoded"
	case ExitNetwork:
		return "Check network connectivity to the authority host, or raise --timeout"
	case ExitAuthorization:
		return "Check that the certificate is uploaded to the app registration and the scope is valid"
	}
	return ""
}

// printError writes err to w. verbose adds the HTTP request and response of failed calls.
func printError(w io.Writer, err error, verbose bool) {
	msg := err.Error()
	if verbose {
		msg = tgerrors.Verbose(err)
	}
	fmt.Fprintf(w, "%s %s\n", errFmt("Error:"), msg)
	if h := hint(err); h != "" {
		fmt.Fprintf(w, "%s %s\n", hintFmt("Hint:"), h)
	}
}
