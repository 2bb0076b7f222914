package main

import (
	"context"

	"github.com/alwitt/healthvault"
	"github.com/spf13/cobra"
)

func newSnapshotCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Store snapshot operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Print the base64 encoded store snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(
				cmd, opts, func(ctx context.Context, client healthvault.Client) (interface{}, error) {
					records, err := client.Store(ctx)
					if err != nil {
						return nil, err
					}
					snapshot, err := records.ExportSnapshot(ctx)
					return map[string]string{"snapshot": snapshot}, err
				},
			)
		},
	})
	return cmd
}
