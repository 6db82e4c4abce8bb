// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"

	"sqlai/cli/internal/logging"
	"sqlai/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage completion API keys stored in the OS keychain",
}

var keysAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store an API key; it is tried after SQLAI_API_KEYS and before API_KEY_* variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := terminal.ReadSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "API key: ")
		if err != nil {
			return err
		}
		if key == "" {
			return errors.New("API key is required")
		}

		km, err := openKeychain()
		if err != nil {
			pterm.Error.Println("Secure storage is not available on this system. Use SQLAI_API_KEYS instead.")
			return err
		}
		added, err := km.AddAPIKey(key)
		if err != nil {
			return err
		}
		if !added {
			pterm.Info.Printfln("Key %s is already stored", logging.Fingerprint(key))
			return nil
		}
		pterm.Success.Printfln("Stored key %s", logging.Fingerprint(key))
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the API keys in rotation order (masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(cfg.Completion.APIKeys) == 0 {
			pterm.Warning.Println("No API keys configured")
			pterm.Println("   Set SQLAI_API_KEYS or run: sqlai keys add")
			return nil
		}

		data := pterm.TableData{{"#", "Key"}}
		for i, k := range cfg.Completion.APIKeys {
			data = append(data, []string{pterm.Sprint(i), logging.Fingerprint(k)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var keysClearAll bool

var keysClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every API key stored in the OS keychain",
	Long: `The clear command removes the stored API keys. With --all the stored database
DSN is removed as well, leaving nothing of sqlai in the OS keychain.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := openKeychain()
		if err != nil {
			return err
		}
		if keysClearAll {
			if err := km.ClearAll(); err != nil {
				return err
			}
			pterm.Success.Println("Stored API keys and database connection removed")
			return nil
		}
		if err := km.ClearAPIKeys(); err != nil {
			return err
		}
		pterm.Success.Println("Stored API keys removed")
		return nil
	},
}

func init() {
	keysClearCmd.Flags().BoolVar(&keysClearAll, "all", false, "also remove the stored database DSN")
	keysCmd.AddCommand(keysAddCmd, keysListCmd, keysClearCmd)
	rootCmd.AddCommand(keysCmd)
}
