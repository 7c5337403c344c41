package main

import (
	"fmt"
	"strings"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/spf13/cobra"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage stored registrar credentials",
	}
	cmd.AddCommand(newSettingsSetCmd(a), newSettingsShowCmd(a))
	return cmd
}

func newSettingsSetCmd(a *app) *cobra.Command {
	var creds brand.Credentials

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the registrar user id and api key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds.UserID = strings.TrimSpace(creds.UserID)
			creds.APIKey = strings.TrimSpace(creds.APIKey)
			if !creds.Configured() {
				return fmt.Errorf("both --user-id and --api-key are required")
			}

			st, err := openStores(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if st.credentials == nil {
				return errNoCredentialStore
			}
			if err := st.credentials.SaveCredentials(cmd.Context(), creds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved credentials for user %s\n", creds.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.UserID, "user-id", "", "registrar reseller id")
	cmd.Flags().StringVar(&creds.APIKey, "api-key", "", "registrar api key")
	return cmd
}

func newSettingsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show which credentials will be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			chain := credentialChain(a.cfg.Registrar, st.credentials)
			if chain == nil {
				fmt.Fprintln(out, "credentials: not configured (domain checks use mock data)")
				return nil
			}
			creds, err := chain.LoadCredentials(cmd.Context())
			if err != nil {
				return err
			}
			if !creds.Configured() {
				fmt.Fprintln(out, "credentials: not configured (domain checks use mock data)")
				return nil
			}
			fmt.Fprintf(out, "credentials: user %s, api key %s\n", creds.UserID, mask(creds.APIKey))
			return nil
		},
	}
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
