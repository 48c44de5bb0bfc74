// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Command tokengen-cert generates an Azure access token using a certificate for authentication.
package main

import (
	"os"

	"github.com/haha1903/tokengen-cert/cmd/tokengen-cert/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
