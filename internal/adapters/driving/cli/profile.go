package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Fetch your account profile",
	Long: `Fetch the authenticated user's profile as JSON.

Also a cheap way to validate the stored credential: a rejected credential
surfaces here without touching any device data.`,
	RunE: runProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, _ []string) error {
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

	raw, newCred, err := env.export.Profile(ctx, env.app(""), cred)
	if err != nil {
		return env.handleUnauthorized(err)
	}
	if err := env.persistCredential(newCred, cred); err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		// Not JSON after all; print it as-is.
		cmd.Println(string(raw))
		return nil
	}
	cmd.Println(pretty.String())
	return nil
}
