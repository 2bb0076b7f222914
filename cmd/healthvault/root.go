package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alwitt/healthvault"
	"github.com/alwitt/healthvault/config"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	apexJSON "github.com/apex/log/handlers/json"
	"github.com/spf13/cobra"
)

// rootOptions global flags
type rootOptions struct {
	ConfigFile string
	cfg        config.Config
}

// newRootCommand define the CLI root command
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "healthvault",
		Short: "Patient health records with wallet scoped access control",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.cfg = config.Default()
			if opts.ConfigFile != "" {
				var err error
				if opts.cfg, err = config.Load(opts.ConfigFile); err != nil {
					return err
				}
			}
			setupLogging(opts.cfg.Log, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(
		&opts.ConfigFile, "config", "c", "", "YAML configuration file",
	)

	cmd.AddCommand(newRecordsCommand(opts))
	cmd.AddCommand(newAccessCommand(opts))
	cmd.AddCommand(newSnapshotCommand(opts))

	return cmd
}

// setupLogging install the configured log handler and level
func setupLogging(cfg config.LogConfig, output io.Writer) {
	if cfg.Format == "json" {
		log.SetHandler(apexJSON.New(output))
	} else {
		log.SetHandler(cli.New(output))
	}
	log.SetLevel(cfg.LogLevel())
}

// withClient run the command logic with a client which is closed afterwards
func withClient(
	cmd *cobra.Command,
	opts *rootOptions,
	coreLogic func(ctx context.Context, client healthvault.Client) (interface{}, error),
) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := healthvault.NewClient(ctx, healthvault.ClientParams{Config: opts.cfg})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Error("Failed to close client")
		}
	}()

	result, err := coreLogic(ctx, client)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

// writeJSON print the result as indented JSON
func writeJSON(output io.Writer, result interface{}) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to write output [%w]", err)
	}
	return nil
}
