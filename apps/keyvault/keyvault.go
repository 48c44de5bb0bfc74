// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package keyvault reads Azure Key Vault secrets with any azcore.TokenCredential, such as the one
// returned by confidential.Client.TokenCredential.
package keyvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// Client reads secrets from one vault.
type Client struct {
	vaultURL string
	secrets  *azsecrets.Client
}

// New is the constructor for Client. vaultURL is e.g. https://myvault.vault.azure.net/.
// opts may be nil.
func New(vaultURL string, cred azcore.TokenCredential, opts *azsecrets.ClientOptions) (*Client, error) {
	if vaultURL == "" {
		return nil, errors.New("vault URL is empty")
	}
	if cred == nil {
		return nil, errors.New("credential is nil")
	}
	secrets, err := azsecrets.NewClient(vaultURL, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("could not create client for vault %s: %w", vaultURL, err)
	}
	return &Client{vaultURL: vaultURL, secrets: secrets}, nil
}

// GetSecret returns the value of secret name. An empty version is the latest version.
func (c *Client) GetSecret(ctx context.Context, name, version string) (string, error) {
	if name == "" {
		return "", errors.New("secret name is empty")
	}
	resp, err := c.secrets.GetSecret(ctx, name, version, nil)
	if err != nil {
		return "", fmt.Errorf("get secret %s from %s: %w", name, c.vaultURL, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %s in %s has no value", name, c.vaultURL)
	}
	return *resp.Value, nil
}
