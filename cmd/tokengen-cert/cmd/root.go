// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package cmd implements the tokengen-cert CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/haha1903/tokengen-cert/apps/confidential"
	tgerrors "github.com/haha1903/tokengen-cert/apps/errors"
	"github.com/haha1903/tokengen-cert/apps/logger"
	"github.com/haha1903/tokengen-cert/internal/version"
)

const defaultTimeout = 30 * time.Second

// Output formats.
const (
	outputToken = "token"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// environment is what the commands read from and write to. Tests replace it.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// httpClient is used for token and Key Vault requests when set.
	httpClient *http.Client
	// knownHost decides which --authority-host values are accepted.
	knownHost func(host string) bool
	// skipVaultChallengeCheck disables the check that the Key Vault challenge resource matches the vault domain.
	skipVaultChallengeCheck bool
}

func defaultEnv() *environment {
	return &environment{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		knownHost: confidential.KnownAuthorityHost,
	}
}

// globalOptions are the flags shared by every command.
type globalOptions struct {
	flags          PartialConfig
	configPath     string
	timeout        time.Duration
	output         string
	legacyEncoding bool
	authorityHost  string
	logLevel       string
	verbose        bool
}

type app struct {
	env  *environment
	opts globalOptions
	log  *slog.Logger
}

func newApp(env *environment) *app {
	return &app{env: env}
}

// flagName is the command line flag for a config key.
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tokengen-cert",
		Short: "Generates an Azure access token using a certificate for authentication",
		Long: `tokengen-cert signs a client assertion with the private key of a certificate registered
on a Microsoft Entra ID application and exchanges it for an OAuth2 access token.

Values not given on the command line are read from $HOME/.tokengen-cert, a JSON object
with the keys tenant_id, client_id, scope, key_path and cert_path.

On success only the access token is written to standard output.`,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: a.runToken,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.flags.TenantID, flagName(keyTenantID), "t", "", "Azure tenant ID")
	flags.StringVarP(&a.opts.flags.ClientID, flagName(keyClientID), "i", "", "Azure client ID")
	flags.StringVarP(&a.opts.flags.Scope, flagName(keyScope), "s", "", "Scope for the Azure service")
	flags.StringVarP(&a.opts.flags.KeyPath, flagName(keyKeyPath), "k", "", "Path to the private key PEM file")
	flags.StringVarP(&a.opts.flags.CertPath, flagName(keyCertPath), "c", "", "Path to the certificate PEM file")
	flags.StringVar(&a.opts.configPath, "config", defaultConfigPath(), "Config file")
	flags.DurationVar(&a.opts.timeout, "timeout", defaultTimeout, "Deadline for the whole request")
	flags.StringVarP(&a.opts.output, "output", "o", outputToken, "Output format: token, json, yaml")
	flags.BoolVar(&a.opts.legacyEncoding, "legacy-encoding", false, "Encode the assertion header and payload in padded standard base64")
	flags.StringVar(&a.opts.authorityHost, "authority-host", "", "Authority host for national clouds, e.g. login.microsoftonline.us")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "Log level on standard error: debug, info, warn, error (default warn, debug with -v)")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Log progress and full HTTP errors to standard error")

	root.SetIn(a.env.stdin)
	root.SetOut(a.env.stdout)
	root.SetErr(a.env.stderr)
	root.SetVersionTemplate(versionLine() + "\n")

	root.AddCommand(
		a.assertionCmd(),
		a.verifyCmd(),
		a.secretCmd(),
		a.versionCmd(),
	)
	return root
}

// setup validates the global flags and builds the logger.
func (a *app) setup() error {
	switch a.opts.output {
	case outputToken, outputJSON, outputYAML:
	default:
		return configErrorf("unknown output format %q, want one of token, json, yaml", a.opts.output)
	}
	if a.opts.timeout <= 0 {
		return configErrorf("--timeout must be positive, got %v", a.opts.timeout)
	}
	if a.opts.authorityHost != "" && !a.env.knownHost(a.opts.authorityHost) {
		return configErrorf("--authority-host %q is not a known Microsoft identity platform host", a.opts.authorityHost)
	}

	level := logger.Warn
	if a.opts.verbose {
		level = logger.Debug
	}
	if a.opts.logLevel != "" {
		l, err := logger.ParseLevel(a.opts.logLevel)
		if err != nil {
			return &tgerrors.ConfigurationError{Err: err}
		}
		level = l
	}
	a.log = logger.New(a.env.stderr, level)
	return nil
}

// config merges the config file with the command line and checks the required keys.
func (a *app) config(cmd *cobra.Command, required ...string) (Config, error) {
	defaults, err := loadDefaults(a.opts.configPath)
	if err != nil {
		return Config{}, err
	}
	merged := defaults.merge(a.opts.flags, func(key string) bool {
		return cmd.Flags().Changed(flagName(key))
	})
	return merged.resolve(required...)
}

func (a *app) client(cfg Config) (confidential.Client, error) {
	options := []confidential.Option{confidential.WithLogger(a.log)}
	if a.env.httpClient != nil {
		options = append(options, confidential.WithHTTPClient(a.env.httpClient))
	}
	if a.opts.authorityHost != "" {
		options = append(options, confidential.WithAuthorityHost(a.opts.authorityHost))
	}
	if a.opts.legacyEncoding {
		options = append(options, confidential.WithLegacyEncoding())
	}
	return confidential.New(cfg.TenantID, cfg.ClientID, confidential.NewCredFromFiles(cfg.CertPath, cfg.KeyPath), options...)
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, a.opts.timeout)
}

// tokenView is the json and yaml rendering of a token.
type tokenView struct {
	AccessToken string    `json:"access_token" yaml:"access_token"`
	TokenType   string    `json:"token_type" yaml:"token_type"`
	ExpiresOn   time.Time `json:"expires_on" yaml:"expires_on"`
	Scope       []string  `json:"scope,omitempty" yaml:"scope,omitempty"`
}

func (a *app) runToken(cmd *cobra.Command, args []string) error {
	cfg, err := a.config(cmd, keyTenantID, keyClientID, keyScope, keyKeyPath, keyCertPath)
	if err != nil {
		return err
	}
	client, err := a.client(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := a.context(cmd)
	defer cancel()
	res, err := client.AcquireTokenByCredential(ctx, cfg.Scope)
	if err != nil {
		return err
	}

	if a.opts.output == outputToken {
		_, err = fmt.Fprintln(a.env.stdout, res.AccessToken)
		return err
	}
	return a.render(tokenView{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresOn:   res.ExpiresOn,
		Scope:       res.GrantedScopes,
	})
}

// render writes v to stdout in the json or yaml output format.
func (a *app) render(v interface{}) error {
	switch a.opts.output {
	case outputJSON:
		encoder := json.NewEncoder(a.env.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	default:
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		_, err = a.env.stdout.Write(out)
		return err
	}
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(defaultEnv(), os.Args[1:])
}

func run(env *environment, args []string) int {
	a := newApp(env)
	root := a.rootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		printError(env.stderr, err, a.opts.verbose)
		return exitCode(err)
	}
	return ExitSuccess
}
