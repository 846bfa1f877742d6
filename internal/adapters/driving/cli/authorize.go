package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/openair-labs/awair-export/internal/adapters/driving/oauth"
	"github.com/openair-labs/awair-export/internal/logger"
)

// callbackTimeout is how long the CLI waits for the user to complete the
// provider's consent screen.
const callbackTimeout = 5 * time.Minute

var (
	authorizeClientID     string
	authorizeClientSecret string
	authorizeNoBrowser    bool
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Authorize against the Awair provider",
	Long: `Run the OAuth2 authorization-code flow.

Opens the provider's consent page in your browser and listens on a local
port for the redirect. On success the credential is stored in the config
directory for later commands.

The OAuth client id and secret come from flags, the AWAIR_CLIENT_ID and
AWAIR_CLIENT_SECRET environment variables, or the config file, in that
order of precedence. A missing secret is prompted for without echo.`,
	RunE: runAuthorize,
}

func init() {
	authorizeCmd.Flags().StringVar(&authorizeClientID, "client-id", "", "OAuth client ID")
	authorizeCmd.Flags().StringVar(&authorizeClientSecret, "client-secret", "", "OAuth client secret")
	authorizeCmd.Flags().BoolVar(&authorizeNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	rootCmd.AddCommand(authorizeCmd)
}

func runAuthorize(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}

	if authorizeClientID != "" {
		env.cfg.ClientID = authorizeClientID
	}
	if authorizeClientSecret != "" {
		env.cfg.ClientSecret = authorizeClientSecret
	}
	if env.cfg.ClientID == "" {
		return fmt.Errorf("no OAuth client id configured; pass --client-id or set AWAIR_CLIENT_ID")
	}
	if env.cfg.ClientSecret == "" {
		secret, err := promptSecret("OAuth client secret: ")
		if err != nil {
			return fmt.Errorf("read client secret: %w", err)
		}
		env.cfg.ClientSecret = secret
	}
	if env.cfg.ClientSecret == "" {
		return fmt.Errorf("no OAuth client secret provided")
	}
	if err := env.store.SaveConfig(env.cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	server := oauth.NewCallbackServer(env.cfg.CallbackPort)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() { _ = server.Stop() }()

	app := env.app(server.RedirectURI())
	authURL, state, err := env.auth.BuildAuthorizationRequest(app)
	if err != nil {
		return err
	}

	if authorizeNoBrowser {
		cmd.Printf("Open this URL in your browser:\n\n  %s\n\n", authURL)
	} else if err := oauth.OpenBrowser(authURL); err != nil {
		logger.Warn("could not open browser: %v", err)
		cmd.Printf("Open this URL in your browser:\n\n  %s\n\n", authURL)
	}
	cmd.Printf("Waiting for authorization on %s ...\n", server.RedirectURI())

	cb, err := server.Wait(callbackTimeout)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cred, err := env.auth.ExchangeCode(ctx, app, cb.Code, state, cb.State)
	if err != nil {
		return err
	}
	if err := env.store.SaveCredential(cred); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	cmd.Println("Authorization successful.")
	if !cred.ExpiresAt.IsZero() {
		cmd.Printf("Access token expires at %s\n", cred.ExpiresAt.Format(time.RFC3339))
	}
	if !cred.HasRefreshToken() {
		cmd.Println("Note: the provider issued no refresh token; re-authorize when the token expires.")
	}
	return nil
}

// promptSecret reads a line from the terminal without echoing it.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
