// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/haha1903/tokengen-cert/apps/confidential"
	"github.com/haha1903/tokengen-cert/internal/mock"
)

func assertionArgs(cred credFiles, extra ...string) []string {
	args := []string{
		"assertion",
		"--config", filepath.Join(cred.dir, "absent"),
		"-t", "t1",
		"-i", "c1",
		"-k", cred.keyPath,
		"-c", cred.certPath,
	}
	return append(args, extra...)
}

func TestAssertionCommand(t *testing.T) {
	cred := writeCred(t)

	// No scope and no network needed.
	result := runCLI(t, &environment{}, "", assertionArgs(cred)...)
	require.Equal(t, ExitSuccess, result.code, "stderr: %s", result.stderr)

	assertion := strings.TrimSpace(result.stdout)
	assert.Len(t, strings.Split(assertion, "."), 3)

	claims, err := confidential.Verify(assertion, cred.certPEM)
	require.NoError(t, err)
	assert.Equal(t, "https://login.microsoftonline.com/t1/oauth2/v2.0/token", claims.Payload.Audience)
	assert.Equal(t, "c1", claims.Payload.Issuer)
	assert.Equal(t, "c1", claims.Payload.Subject)
	assert.Equal(t, 5*time.Minute, claims.Payload.ExpiresAt.Sub(claims.Payload.NotBefore.Time))
}

func TestAssertionCommand_AuthorityHost(t *testing.T) {
	cred := writeCred(t)
	result := runCLI(t, &environment{}, "", assertionArgs(cred, "--authority-host", "login.microsoftonline.us")...)
	require.Equal(t, ExitSuccess, result.code, "stderr: %s", result.stderr)

	claims, err := confidential.Verify(strings.TrimSpace(result.stdout), cred.certPEM)
	require.NoError(t, err)
	assert.Equal(t, "https://login.microsoftonline.us/t1/oauth2/v2.0/token", claims.Payload.Audience)
}

func TestAssertionCommand_MissingClient(t *testing.T) {
	cred := writeCred(t)
	result := runCLI(t, &environment{}, "", "assertion",
		"--config", filepath.Join(cred.dir, "absent"),
		"-t", "t1", "-k", cred.keyPath, "-c", cred.certPath)

	assert.Equal(t, ExitConfig, result.code)
	assert.Contains(t, result.stderr, "client_id")
	assert.NotContains(t, result.stderr, "scope")
}

func TestVerifyCommand(t *testing.T) {
	cred := writeCred(t)
	result := runCLI(t, &environment{}, "", assertionArgs(cred)...)
	require.Equal(t, ExitSuccess, result.code, "stderr: %s", result.stderr)
	assertion := strings.TrimSpace(result.stdout)

	absent := filepath.Join(cred.dir, "absent")

	t.Run("argument", func(t *testing.T) {
		result := runCLI(t, &environment{}, "", "verify", assertion, "--config", absent, "-c", cred.certPath)
		require.Equal(t, ExitSuccess, result.code, "stderr: %s", result.stderr)

		var view assertionView
		require.NoError(t, yaml.Unmarshal([]byte(result.stdout), &view))
		assert.Equal(t, "RS256", view.Header.Algorithm)
		assert.Equal(t, "JWT", view.Header.Type)
		assert.Equal(t, "c1", view.Payload.Issuer)
		assert.Equal(t, "https://login.microsoftonline.com/t1/oauth2/v2.0/token", view.Payload.Audience)
		assert.False(t, view.Expired)
	})

	t.Run("stdin as json", func(t *testing.T) {
		result := runCLI(t, &environment{}, assertion+"\n", "verify", "-", "--config", absent, "-c", cred.certPath, "-o", "json")
		require.Equal(t, ExitSuccess, result.code, "stderr: %s", result.stderr)

		var view assertionView
		require.NoError(t, json.Unmarshal([]byte(result.stdout), &view))
		assert.Equal(t, "c1", view.Payload.Subject)
	})

	t.Run("other certificate", func(t *testing.T) {
		other := mock.NewCert("other", mock.PKCS1)
		otherPath := filepath.Join(cred.dir, "other.pem")
		require.NoError(t, os.WriteFile(otherPath, other.CertPEM, 0600))

		result := runCLI(t, &environment{}, "", "verify", assertion, "--config", absent, "-c", otherPath)
		assert.Equal(t, ExitGeneral, result.code)
		assert.Contains(t, result.stderr, "assertion is not valid")
		assert.Empty(t, result.stdout)
	})

	t.Run("spliced payload", func(t *testing.T) {
		other := runCLI(t, &environment{}, "", assertionArgs(cred, "-i", "c2")...)
		require.Equal(t, ExitSuccess, other.code, "stderr: %s", other.stderr)
		parts := strings.Split(assertion, ".")
		parts[1] = strings.Split(strings.TrimSpace(other.stdout), ".")[1]
		result := runCLI(t, &environment{}, "", "verify", strings.Join(parts, "."), "--config", absent, "-c", cred.certPath)
		assert.NotEqual(t, ExitSuccess, result.code)
	})

	t.Run("missing certificate path", func(t *testing.T) {
		result := runCLI(t, &environment{}, "", "verify", assertion, "--config", absent)
		assert.Equal(t, ExitConfig, result.code)
		assert.Contains(t, result.stderr, "cert_path")
	})

	t.Run("certificate file missing", func(t *testing.T) {
		result := runCLI(t, &environment{}, "", "verify", assertion, "--config", absent, "-c", filepath.Join(cred.dir, "nope.pem"))
		assert.Equal(t, ExitIO, result.code)
	})

	t.Run("no argument", func(t *testing.T) {
		result := runCLI(t, &environment{}, "", "verify", "--config", absent, "-c", cred.certPath)
		assert.Equal(t, ExitGeneral, result.code)
	})
}

func TestNewAssertionViewExpired(t *testing.T) {
	cred := mock.Cert()
	client, err := confidential.New("t1", "c1", confidential.NewCredFromPEM(cred.CertPEM, cred.KeyPEM))
	require.NoError(t, err)
	assertion, err := client.Assertion(t.Context())
	require.NoError(t, err)
	claims, err := confidential.Verify(assertion, cred.CertPEM)
	require.NoError(t, err)

	assert.False(t, newAssertionView(claims, time.Now()).Expired)
	assert.True(t, newAssertionView(claims, time.Now().Add(6*time.Minute)).Expired)
}
