package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the stored credential now",
	Long: `Explicitly refresh the stored credential, regardless of expiry.

Normally refresh happens automatically when a command finds the credential
expired; this forces one, e.g. to verify the refresh token still works.`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}
	cred, err := env.loadCredential()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fresh, err := env.refresher.Refresh(ctx, env.app(""), cred)
	if err != nil {
		return err
	}
	if err := env.store.SaveCredential(fresh); err != nil {
		return err
	}

	cmd.Println("Credential refreshed.")
	if !fresh.ExpiresAt.IsZero() {
		cmd.Printf("Access token expires at %s\n", fresh.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
