// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package grant holds types of grants issued by authorization services.
package grant

const (
	ClientCredential = "client_credentials"
	ClientAssertion  = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
)
