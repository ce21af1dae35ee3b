package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/amonks/hauk/internal/state"
	internalstrings "github.com/amonks/hauk/internal/strings"
	"github.com/amonks/hauk/internal/ui"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show the settings remembered between shares",
	Args:  cobra.NoArgs,
	RunE:  runPrefsShow,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change remembered settings without sharing",
	Args:  cobra.NoArgs,
	RunE:  runPrefsSet,
}

var prefsForgetPasswordCmd = &cobra.Command{
	Use:   "forget-password",
	Short: "Forget the remembered password",
	Args:  cobra.NoArgs,
	RunE:  runPrefsForgetPassword,
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the first-run settings",
	Args:  cobra.NoArgs,
	RunE:  runPrefsReset,
}

var (
	prefsJSON     bool
	prefsServer   string
	prefsDuration int
	prefsInterval int
)

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsSetCmd, prefsForgetPasswordCmd, prefsResetCmd)

	prefsCmd.Flags().BoolVar(&prefsJSON, "json", false, "Output as JSON")

	setFlagAliases(prefsSetCmd.Flags(), map[string]string{
		"dur": "duration",
		"int": "interval",
	})
	prefsSetCmd.Flags().StringVarP(&prefsServer, "server", "s", "", "Hauk server URL")
	prefsSetCmd.Flags().IntVarP(&prefsDuration, "duration", "d", 0, "Share duration in minutes")
	prefsSetCmd.Flags().IntVarP(&prefsInterval, "interval", "i", 0, "Seconds between location updates")
}

type prefsJSONOutput struct {
	Server           string `json:"server"`
	Duration         int    `json:"duration"`
	Interval         int    `json:"interval"`
	RememberPassword bool   `json:"remember_password"`
	PasswordSaved    bool   `json:"password_saved"`
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	prefs, err := store.LoadPreferences()
	if err != nil {
		return err
	}

	if prefsJSON {
		return encodeJSONToStdout(prefsJSONOutput{
			Server:           prefs.Server,
			Duration:         prefs.Duration,
			Interval:         prefs.Interval,
			RememberPassword: prefs.RememberPassword,
			PasswordSaved:    prefs.Password != "",
		})
	}

	fmt.Fprint(cmd.OutOrStdout(), formatPrefsTable(prefs))
	return nil
}

func formatPrefsTable(prefs state.Preferences) string {
	server := prefs.Server
	if server == "" {
		server = "-"
	}
	password := "-"
	if prefs.Password != "" {
		password = internalstrings.Mask(prefs.Password)
	}

	builder := ui.NewTableBuilder([]string{"KEY", "VALUE"}, 5)
	builder.AddRow("server", server)
	builder.AddRow("duration", ui.FormatDurationShort(time.Duration(prefs.Duration)*time.Minute))
	builder.AddRow("interval", ui.FormatDurationShort(time.Duration(prefs.Interval)*time.Second))
	builder.AddRow("remember", strconv.FormatBool(prefs.RememberPassword))
	builder.AddRow("password", password)
	return builder.String()
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	if !hasChangedFlags(cmd, "server", "duration", "interval") {
		return fmt.Errorf("nothing to set; pass --server, --duration, or --interval")
	}
	if cmd.Flags().Changed("duration") && prefsDuration <= 0 {
		return fmt.Errorf("duration must be positive, got %d", prefsDuration)
	}
	if cmd.Flags().Changed("interval") && prefsInterval <= 0 {
		return fmt.Errorf("interval must be positive, got %d", prefsInterval)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	err = store.Update(func(prefs *state.Preferences) error {
		if cmd.Flags().Changed("server") {
			prefs.Server = internalstrings.TrimSpace(prefsServer)
		}
		if cmd.Flags().Changed("duration") {
			prefs.Duration = prefsDuration
		}
		if cmd.Flags().Changed("interval") {
			prefs.Interval = prefsInterval
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Updated preferences")
	return nil
}

func runPrefsForgetPassword(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.ForgetPassword(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Forgot saved password")
	return nil
}

func runPrefsReset(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Reset preferences")
	return nil
}
