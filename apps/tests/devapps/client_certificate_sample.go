// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/haha1903/tokengen-cert/apps/confidential"
)

func newClient(config *Config) confidential.Client {
	options := []confidential.Option{
		confidential.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	}
	if config.AuthorityHost != "" {
		options = append(options, confidential.WithAuthorityHost(config.AuthorityHost))
	}
	cred := confidential.NewCredFromFiles(config.CertPath, config.KeyPath)
	if config.PFXPath != "" {
		pfx, err := os.ReadFile(config.PFXPath)
		if err != nil {
			log.Fatal(err)
		}
		cred, err = confidential.NewCredFromPFX(pfx, config.PFXPassword)
		if err != nil {
			log.Fatal(err)
		}
	}
	app, err := confidential.New(config.TenantID, config.ClientID, cred, options...)
	if err != nil {
		log.Fatal(err)
	}
	return app
}

func acquireTokenClientCertificate(ctx context.Context, config *Config) {
	app := newClient(config)
	result, err := app.AcquireTokenByCredential(ctx, config.Scope)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Access Token Is " + result.AccessToken)
	fmt.Println("Expires On", result.ExpiresOn)
}

func printAssertion(ctx context.Context, config *Config) {
	app := newClient(config)
	assertion, err := app.Assertion(ctx)
	if err != nil {
		log.Fatal(err)
	}
	certPEM, err := os.ReadFile(config.CertPath)
	if err != nil {
		log.Fatal(err)
	}
	claims, err := confidential.Verify(assertion, certPEM)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Assertion for %s, valid until %v\n", claims.Payload.Audience, claims.Payload.ExpiresAt.Time)
}
