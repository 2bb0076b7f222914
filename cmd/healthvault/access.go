package main

import (
	"context"

	"github.com/alwitt/healthvault"
	"github.com/spf13/cobra"
)

func newAccessCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Doctor access operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "grant <patient> <doctor>",
		Short: "Grant a doctor access to every record of a patient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(
				cmd, opts, func(ctx context.Context, client healthvault.Client) (interface{}, error) {
					entry, _, err := client.GrantAccess(ctx, args[0], args[1])
					return entry, err
				},
			)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <patient> <doctor>",
		Short: "Revoke a doctor's access to every record of a patient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(
				cmd, opts, func(ctx context.Context, client healthvault.Client) (interface{}, error) {
					revoked, _, err := client.RevokeAccess(ctx, args[0], args[1])
					return revoked, err
				},
			)
		},
	})

	var patient string
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "List access log entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(
				cmd, opts, func(ctx context.Context, client healthvault.Client) (interface{}, error) {
					records, err := client.Store(ctx)
					if err != nil {
						return nil, err
					}
					if cmd.Flags().Changed("patient") {
						return records.LogForPatient(ctx, patient)
					}
					return records.LogAll(ctx)
				},
			)
		},
	}
	logCmd.Flags().StringVar(&patient, "patient", "", "only entries of this patient address")
	cmd.AddCommand(logCmd)

	return cmd
}
