// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package main

import (
	"context"
	"os"
)

func main() {
	ctx := context.Background()
	config := CreateConfig("confidential_config.json")

	// Choose a sammple to run.
	exampleType := "1"
	if len(os.Args) > 1 {
		exampleType = os.Args[1]
	}

	switch exampleType {
	case "1":
		acquireTokenClientCertificate(ctx, config)
	case "2":
		printAssertion(ctx, config)
	case "3":
		readSecret(ctx, config)
	}
}
