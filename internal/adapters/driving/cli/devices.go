package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices on your account",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, _ []string) error {
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

	devices, newCred, err := env.export.ListDevices(ctx, env.app(""), cred)
	if err != nil {
		return env.handleUnauthorized(err)
	}
	if err := env.persistCredential(newCred, cred); err != nil {
		return err
	}

	if len(devices) == 0 {
		cmd.Println("No devices on this account.")
		return nil
	}

	cmd.Printf("%-30s %s\n", "DEVICE", "NAME")
	for _, d := range devices {
		cmd.Printf("%-30s %s\n", d.Ref(), d.DisplayName())
	}
	return nil
}
