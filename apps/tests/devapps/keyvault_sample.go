// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/haha1903/tokengen-cert/apps/keyvault"
)

func readSecret(ctx context.Context, config *Config) {
	app := newClient(config)
	vault, err := keyvault.New(config.VaultURL, app.TokenCredential(), nil)
	if err != nil {
		log.Fatal(err)
	}
	value, err := vault.GetSecret(ctx, config.SecretName, "")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Secret %s has %d characters\n", config.SecretName, len(value))
}
