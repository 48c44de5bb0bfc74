// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
)

// configFileName is looked up in the home directory.
const configFileName = ".tokengen-cert"

// Config keys, shared by the config file and the error messages.
const (
	keyTenantID = "tenant_id"
	keyClientID = "client_id"
	keyScope    = "scope"
	keyKeyPath  = "key_path"
	keyCertPath = "cert_path"
)

// PartialConfig is a possibly incomplete set of inputs from one source.
type PartialConfig struct {
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
	ClientID string `json:"client_id" yaml:"client_id"`
	Scope    string `json:"scope" yaml:"scope"`
	KeyPath  string `json:"key_path" yaml:"key_path"`
	CertPath string `json:"cert_path" yaml:"cert_path"`
}

// Config is the resolved input of one run.
type Config struct {
	TenantID string
	ClientID string
	Scope    string
	KeyPath  string
	CertPath string
}

// defaultConfigPath returns $HOME/.tokengen-cert, or "" when there is no home directory.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configFileName)
}

// loadDefaults reads the config file at path. A missing file is an empty config. The file is a
// JSON object; YAML with the same keys is accepted too.
func loadDefaults(path string) (PartialConfig, error) {
	if path == "" {
		return PartialConfig{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PartialConfig{}, nil
		}
		return PartialConfig{}, &tgerrors.ConfigurationError{Err: fmt.Errorf("could not read %s: %w", path, err)}
	}
	return parseDefaults(path, b)
}

func parseDefaults(path string, b []byte) (PartialConfig, error) {
	var pc PartialConfig
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return pc, nil
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &pc); err != nil {
			return PartialConfig{}, &tgerrors.ConfigurationError{Err: fmt.Errorf("%s is not valid JSON: %w", path, err)}
		}
		return pc, nil
	}
	if err := yaml.Unmarshal(trimmed, &pc); err != nil {
		return PartialConfig{}, &tgerrors.ConfigurationError{Err: fmt.Errorf("%s is neither JSON nor YAML: %w", path, err)}
	}
	return pc, nil
}

// merge returns p with every field set in over replaced. set reports if a field was given
// explicitly, so an empty command line value still wins over the file.
func (p PartialConfig) merge(over PartialConfig, set func(key string) bool) PartialConfig {
	if set(keyTenantID) {
		p.TenantID = over.TenantID
	}
	if set(keyClientID) {
		p.ClientID = over.ClientID
	}
	if set(keyScope) {
		p.Scope = over.Scope
	}
	if set(keyKeyPath) {
		p.KeyPath = over.KeyPath
	}
	if set(keyCertPath) {
		p.CertPath = over.CertPath
	}
	return p
}

func (p PartialConfig) get(key string) string {
	switch key {
	case keyTenantID:
		return p.TenantID
	case keyClientID:
		return p.ClientID
	case keyScope:
		return p.Scope
	case keyKeyPath:
		return p.KeyPath
	case keyCertPath:
		return p.CertPath
	}
	return ""
}

// resolve checks that every required key has a value. All missing keys are reported at once.
func (p PartialConfig) resolve(required ...string) (Config, error) {
	var result *multierror.Error
	for _, key := range required {
		if p.get(key) == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required: pass --%s or set %q in the config file", key, flagName(key), key))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return Config{}, &tgerrors.ConfigurationError{Err: err}
	}
	return Config(p), nil
}
