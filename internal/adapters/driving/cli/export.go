package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openair-labs/awair-export/internal/core/domain"
	"github.com/openair-labs/awair-export/internal/logger"
)

var (
	exportDevice     string
	exportDate       string
	exportOut        string
	exportFahrenheit bool
	exportExtended   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one day of samples for a device as CSV",
	Long: `Export a device's 5-minute-average samples for a single calendar day
(UTC) as CSV. One invocation produces one file for one (device, day) pair;
loop over dates in your shell for longer ranges.

Without --device the first device on the account is used. Without --date
yesterday (UTC) is exported, the most recent complete day.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDevice, "device", "", "Device address as deviceType/deviceId (default: first device)")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Day to export, YYYY-MM-DD in UTC (default: yesterday)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: awair-<device>-<date>.csv, \"-\" for stdout)")
	exportCmd.Flags().BoolVar(&exportFahrenheit, "fahrenheit", false, "Report temperature in Fahrenheit")
	exportCmd.Flags().BoolVar(&exportExtended, "extended", false, "Include lux and spl_a columns")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}
	loaded, err := env.loadCredential()
	if err != nil {
		return err
	}

	day, err := parseDay(exportDate)
	if err != nil {
		return err
	}

	unit := env.cfg.Unit()
	if exportFahrenheit {
		unit = domain.UnitFahrenheit
	}

	runID := uuid.NewString()
	logger.Debug("export run %s: day=%s unit=%s", runID, day.Format("2006-01-02"), unit)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	app := env.app("")

	// Any step below may refresh the credential; always compare against the
	// credential as loaded so a rotated refresh token is never lost.
	device, cred, err := resolveDevice(ctx, env, app, loaded)
	if err != nil {
		if perr := env.persistCredential(cred, loaded); perr != nil {
			logger.Warn("could not store refreshed credential: %v", perr)
		}
		return env.handleUnauthorized(err)
	}

	csv, cred, err := env.export.ExportDay(ctx, app, cred, device, day, unit, exportExtended)
	if err != nil {
		if perr := env.persistCredential(cred, loaded); perr != nil {
			logger.Warn("could not store refreshed credential: %v", perr)
		}
		return env.handleUnauthorized(err)
	}
	if err := env.persistCredential(cred, loaded); err != nil {
		return err
	}

	out := exportOut
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(csv)
		return err
	}
	if out == "" {
		out = fmt.Sprintf("awair-%s-%s-%s.csv", device.Type, device.ID, day.Format("2006-01-02"))
	}
	if err := os.WriteFile(out, csv, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	cmd.Printf("Wrote %s\n", out)
	return nil
}

// resolveDevice matches --device against the account's device list, or
// picks the first device when the flag is empty. The list is fetched fresh
// on every run; devices can come and go between invocations.
func resolveDevice(ctx context.Context, env *env, app domain.OAuthApp, cred domain.Credential) (domain.Device, domain.Credential, error) {
	devices, cred, err := env.export.ListDevices(ctx, app, cred)
	if err != nil {
		return domain.Device{}, cred, err
	}
	if len(devices) == 0 {
		return domain.Device{}, cred, fmt.Errorf("no devices on this account")
	}

	if exportDevice == "" {
		logger.Info("no --device given, using %s", devices[0].Ref())
		return devices[0], cred, nil
	}

	for _, d := range devices {
		if d.Ref() == exportDevice || d.ID == exportDevice {
			return d, cred, nil
		}
	}

	known := make([]string, 0, len(devices))
	for _, d := range devices {
		known = append(known, d.Ref())
	}
	return domain.Device{}, cred, fmt.Errorf("device %q not found; known devices: %s",
		exportDevice, strings.Join(known, ", "))
}

// parseDay parses a YYYY-MM-DD date, defaulting to yesterday UTC, the most
// recent day with a complete set of samples.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC().AddDate(0, 0, -1), nil
	}
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", s, err)
	}
	return day, nil
}
