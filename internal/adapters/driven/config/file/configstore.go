package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/openair-labs/awair-export/internal/core/domain"
)

// Default Awair endpoints, overridable in the config file for testing
// against a mock provider.
const (
	DefaultAuthURL    = "https://oauth-login.awair.is"
	DefaultTokenURL   = "https://oauth2.awair.is/v2/token"
	DefaultAPIBaseURL = "https://developer-apis.awair.is"

	// DefaultCallbackPort is where the local redirect listener binds.
	DefaultCallbackPort = 8484
)

// Config is the on-disk application configuration.
type Config struct {
	// ProfileID identifies this installation in log lines. Generated once.
	ProfileID string `toml:"profile_id"`

	// ClientID and ClientSecret identify the registered OAuth application.
	// The AWAIR_CLIENT_ID and AWAIR_CLIENT_SECRET environment variables
	// override them.
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`

	// CallbackPort is the local port for the authorization redirect.
	CallbackPort int `toml:"callback_port"`

	// Fahrenheit selects the default temperature unit for exports.
	Fahrenheit bool `toml:"fahrenheit"`

	// Endpoints override the production Awair URLs when set.
	Endpoints Endpoints `toml:"endpoints"`
}

// Endpoints holds provider URL overrides.
type Endpoints struct {
	AuthURL    string `toml:"auth_url,omitempty"`
	TokenURL   string `toml:"token_url,omitempty"`
	APIBaseURL string `toml:"api_base_url,omitempty"`
}

// AuthURL returns the configured authorization base URL or the default.
func (c *Config) AuthURL() string {
	if c.Endpoints.AuthURL != "" {
		return c.Endpoints.AuthURL
	}
	return DefaultAuthURL
}

// TokenURL returns the configured token URL or the default. For Awair the
// refresh URL equals the token URL.
func (c *Config) TokenURL() string {
	if c.Endpoints.TokenURL != "" {
		return c.Endpoints.TokenURL
	}
	return DefaultTokenURL
}

// APIBaseURL returns the configured resource API base or the default.
func (c *Config) APIBaseURL() string {
	if c.Endpoints.APIBaseURL != "" {
		return c.Endpoints.APIBaseURL
	}
	return DefaultAPIBaseURL
}

// Unit returns the configured default temperature unit.
func (c *Config) Unit() domain.TemperatureUnit {
	if c.Fahrenheit {
		return domain.UnitFahrenheit
	}
	return domain.UnitCelsius
}

// Store persists the configuration and the caller's current credential in
// the tool's config directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates a store rooted at configDir.
// If configDir is empty, defaults to ~/.awair-export.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".awair-export")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &Store{dir: configDir}, nil
}

// ConfigPath returns the configuration file path.
func (s *Store) ConfigPath() string {
	return filepath.Join(s.dir, "config.toml")
}

// CredentialPath returns the credential file path.
func (s *Store) CredentialPath() string {
	return filepath.Join(s.dir, "credential.json")
}

// LoadConfig reads the configuration, applying environment overrides.
// A missing file yields the zero config with defaults applied downstream.
func (s *Store) LoadConfig() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cfg Config
	data, err := os.ReadFile(s.ConfigPath())
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", s.ConfigPath(), err)
		}
	}

	if v := os.Getenv("AWAIR_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("AWAIR_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
	}
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	return cfg, nil
}

// SaveConfig persists the configuration with restricted permissions:
// it contains the OAuth client secret.
func (s *Store) SaveConfig(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(s.ConfigPath(), data, 0600)
}

// LoadCredential reads the caller's stored credential.
// Returns ok=false when no credential has been stored yet.
func (s *Store) LoadCredential() (domain.Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.CredentialPath())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Credential{}, false, nil
		}
		return domain.Credential{}, false, err
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return domain.Credential{}, false, fmt.Errorf("parse %s: %w", s.CredentialPath(), err)
	}
	return cred, true, nil
}

// SaveCredential replaces the stored credential wholesale. Called after
// authorization and after every refresh, since the provider may have
// rotated the refresh token.
func (s *Store) SaveCredential(cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.CredentialPath(), data, 0600)
}

// ClearCredential removes the stored credential, e.g. after the provider
// rejected it and re-authorization is required.
func (s *Store) ClearCredential() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.CredentialPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
