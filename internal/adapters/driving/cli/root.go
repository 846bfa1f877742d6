// Package cli wires the cobra commands for the awair-export tool.
// Commands are thin: they load configuration and the stored credential,
// call into core services, and write results back. All credential and
// export logic lives in internal/core.
package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openair-labs/awair-export/internal/adapters/driven/awair"
	"github.com/openair-labs/awair-export/internal/adapters/driven/config/file"
	drivenoauth "github.com/openair-labs/awair-export/internal/adapters/driven/oauth"
	"github.com/openair-labs/awair-export/internal/core/domain"
	"github.com/openair-labs/awair-export/internal/core/services"
	"github.com/openair-labs/awair-export/internal/logger"
)

var version = "dev"

var (
	verboseFlag   bool
	configDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "awair-export",
	Short: "Export Awair air-quality data as CSV",
	Long: `awair-export authorizes against the Awair developer API and downloads
a device's 5-minute-average sensor readings for a single day as CSV.

Typical flow:

  # One-time: register an OAuth app at developer.getawair.com, then
  awair-export authorize --client-id "xxx"

  # See your devices
  awair-export devices

  # Export one day for one device
  awair-export export --device awair-element/12345 --date 2026-03-14`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Config directory (default ~/.awair-export)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// env holds the wired adapters and services for one command invocation.
type env struct {
	store     *file.Store
	cfg       file.Config
	auth      *services.AuthorizationClient
	refresher *services.TokenRefresher
	export    *services.ExportService
}

// buildEnv loads configuration and constructs the service graph.
func buildEnv() (*env, error) {
	store, err := file.NewStore(configDirFlag)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}

	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.ProfileID == "" {
		cfg.ProfileID = uuid.NewString()
		if err := store.SaveConfig(cfg); err != nil {
			return nil, err
		}
	}

	endpoint := drivenoauth.NewEndpoint(cfg.TokenURL())
	refresher := services.NewTokenRefresher(endpoint)

	return &env{
		store:     store,
		cfg:       cfg,
		auth:      services.NewAuthorizationClient(endpoint, cfg.AuthURL()),
		refresher: refresher,
		export:    services.NewExportService(awair.NewClient(cfg.APIBaseURL()), refresher),
	}, nil
}

// app assembles the OAuth application settings for core calls.
func (e *env) app(redirectURI string) domain.OAuthApp {
	return domain.OAuthApp{
		ClientID:     e.cfg.ClientID,
		ClientSecret: e.cfg.ClientSecret,
		RedirectURI:  redirectURI,
		Scope:        "",
	}
}

// loadCredential reads the stored credential, failing with a hint when the
// user has not authorized yet.
func (e *env) loadCredential() (domain.Credential, error) {
	cred, ok, err := e.store.LoadCredential()
	if err != nil {
		return domain.Credential{}, err
	}
	if !ok {
		return domain.Credential{}, errors.New("no credential stored; run 'awair-export authorize' first")
	}
	return cred, nil
}

// persistCredential saves the credential if a refresh replaced it.
func (e *env) persistCredential(cred, prev domain.Credential) error {
	if cred == prev {
		return nil
	}
	logger.Info("credential was refreshed, storing replacement")
	return e.store.SaveCredential(cred)
}

// handleUnauthorized clears a rejected credential so the next run prompts
// for re-authorization, then rewraps the error with a hint.
func (e *env) handleUnauthorized(err error) error {
	if !domain.IsUnauthorized(err) {
		return err
	}
	if clearErr := e.store.ClearCredential(); clearErr != nil {
		logger.Warn("could not clear rejected credential: %v", clearErr)
	}
	return fmt.Errorf("credential rejected by provider; run 'awair-export authorize' again: %w", err)
}
