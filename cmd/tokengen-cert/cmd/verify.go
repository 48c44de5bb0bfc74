// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haha1903/tokengen-cert/apps/confidential"
	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
)

type headerView struct {
	Algorithm  string `json:"alg" yaml:"alg"`
	Type       string `json:"typ" yaml:"typ"`
	Thumbprint string `json:"x5t" yaml:"x5t"`
}

type payloadView struct {
	Audience  string    `json:"aud" yaml:"aud"`
	ExpiresAt time.Time `json:"exp" yaml:"exp"`
	Issuer    string    `json:"iss" yaml:"iss"`
	ID        string    `json:"jti" yaml:"jti"`
	NotBefore time.Time `json:"nbf" yaml:"nbf"`
	Subject   string    `json:"sub" yaml:"sub"`
}

type assertionView struct {
	Header  headerView  `json:"header" yaml:"header"`
	Payload payloadView `json:"payload" yaml:"payload"`
	Expired bool        `json:"expired" yaml:"expired"`
}

func newAssertionView(c confidential.Claims, now time.Time) assertionView {
	v := assertionView{
		Header: headerView{
			Algorithm:  c.Header.Algorithm,
			Type:       c.Header.Type,
			Thumbprint: c.Header.Thumbprint,
		},
		Payload: payloadView{
			Audience: c.Payload.Audience,
			Issuer:   c.Payload.Issuer,
			ID:       c.Payload.ID,
			Subject:  c.Payload.Subject,
		},
	}
	if c.Payload.ExpiresAt != nil {
		v.Payload.ExpiresAt = c.Payload.ExpiresAt.UTC()
		v.Expired = !now.Before(c.Payload.ExpiresAt.Time)
	}
	if c.Payload.NotBefore != nil {
		v.Payload.NotBefore = c.Payload.NotBefore.UTC()
	}
	return v
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <assertion|->",
		Short: "Check a client assertion against the certificate",
		Long: `Verifies offline that a client assertion is RS256, carries the thumbprint of the
certificate in --cert-path and is signed by its key, then prints the header and claims.
Pass - to read the assertion from standard input. Expiry is reported, not enforced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config(cmd, keyCertPath)
			if err != nil {
				return err
			}

			assertion := args[0]
			if assertion == "-" {
				b, err := io.ReadAll(a.env.stdin)
				if err != nil {
					return fmt.Errorf("could not read the assertion from standard input: %w", err)
				}
				assertion = string(b)
			}
			assertion = strings.TrimSpace(assertion)

			certPEM, err := os.ReadFile(cfg.CertPath)
			if err != nil {
				return &tgerrors.IOError{Path: cfg.CertPath, Err: err}
			}
			claims, err := confidential.Verify(assertion, certPEM)
			if err != nil {
				return fmt.Errorf("assertion is not valid: %w", err)
			}
			return a.render(newAssertionView(claims, time.Now()))
		},
	}
}
