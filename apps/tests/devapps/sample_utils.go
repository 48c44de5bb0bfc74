// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package main

import (
	"encoding/json"
	"log"
	"os"
)

// Config represents the config.json required to run the samples
type Config struct {
	TenantID      string `json:"tenant_id"`
	ClientID      string `json:"client_id"`
	AuthorityHost string `json:"authority_host"`
	Scope         string `json:"scope"`
	CertPath      string `json:"cert_path"`
	KeyPath       string `json:"key_path"`
	PFXPath       string `json:"pfx_path"`
	PFXPassword   string `json:"pfx_password"`
	VaultURL      string `json:"vault_url"`
	SecretName    string `json:"secret_name"`
}

// CreateConfig creates the Config struct from a json file.
func CreateConfig(fileName string) *Config {
	data, err := os.ReadFile(fileName)
	if err != nil {
		log.Fatal(err)
	}

	config := &Config{}
	err = json.Unmarshal(data, config)
	if err != nil {
		log.Fatal(err)
	}
	return config
}
