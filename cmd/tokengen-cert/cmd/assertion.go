// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) assertionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assertion",
		Short: "Print a signed client assertion without requesting a token",
		Long: `Builds and signs the client assertion that would be sent to the token endpoint and
writes it to standard output. Nothing is sent over the network. Useful with other tools
that take a client_assertion, or to inspect it with 'tokengen-cert verify'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config(cmd, keyTenantID, keyClientID, keyKeyPath, keyCertPath)
			if err != nil {
				return err
			}
			client, err := a.client(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			assertion, err := client.Assertion(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.env.stdout, assertion)
			return err
		},
	}
}
