package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tudor/internal/config"
	"tudor/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput   bool
		outputFormat string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:           "tudor",
		Short:         "Tudor is a multi-user hierarchical task tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			if outputFormat != "" {
				f, err := format.ForName(outputFormat)
				if err != nil {
					return err
				}
				outputFormatter = f
				jsonOutput = true
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&outputFormat, "output-format", "", "structured output format: json or yaml")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
		newExportCmd(cfg),
		newImportCmd(cfg, &jsonOutput),
		newUserCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newAddCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newUpdateCmd(cfg, &jsonOutput),
		newDoneCmd(cfg, &jsonOutput, true),
		newDoneCmd(cfg, &jsonOutput, false),
		newMoveCmd(cfg, &jsonOutput),
	)

	return cmd
}
