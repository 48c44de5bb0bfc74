// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package cmd

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	azlog "github.com/Azure/azure-sdk-for-go/sdk/azcore/log"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/spf13/cobra"

	"github.com/haha1903/tokengen-cert/apps/keyvault"
	"github.com/haha1903/tokengen-cert/apps/logger"
)

type secretOptions struct {
	vaultURL string
	name     string
	version  string
}

func (a *app) secretCmd() *cobra.Command {
	var opts secretOptions
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Read a Key Vault secret using the certificate credential",
		Long: `Reads a secret from Azure Key Vault. The access token for the vault is acquired with
the certificate credential; the scope flag is not used. The secret value is written to
standard output.`,
		Example: `  tokengen-cert secret --vault-url https://myvault.vault.azure.net/ --name db-password`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.vaultURL == "" || opts.name == "" {
				return configErrorf("--vault-url and --name are required")
			}
			cfg, err := a.config(cmd, keyTenantID, keyClientID, keyKeyPath, keyCertPath)
			if err != nil {
				return err
			}
			client, err := a.client(cfg)
			if err != nil {
				return err
			}

			if a.opts.verbose {
				azlog.SetListener(logger.AzureSDKListener(a.log))
				defer azlog.SetListener(nil)
			}
			vaultOpts := &azsecrets.ClientOptions{
				DisableChallengeResourceVerification: a.env.skipVaultChallengeCheck,
			}
			if a.env.httpClient != nil {
				vaultOpts.ClientOptions = azcore.ClientOptions{Transport: a.env.httpClient}
			}
			vault, err := keyvault.New(opts.vaultURL, client.TokenCredential(), vaultOpts)
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			value, err := vault.GetSecret(ctx, opts.name, opts.version)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.env.stdout, value)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.vaultURL, "vault-url", "", "Vault URL, e.g. https://myvault.vault.azure.net/")
	cmd.Flags().StringVar(&opts.name, "name", "", "Secret name")
	cmd.Flags().StringVar(&opts.version, "version", "", "Secret version (default: latest)")
	return cmd
}
