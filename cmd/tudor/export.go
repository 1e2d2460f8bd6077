package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tudor/internal/api"
	"tudor/internal/config"
	"tudor/internal/models"
	"tudor/internal/service"
)

func newExportCmd(cfg *config.Config) *cobra.Command {
	var (
		outputPath string
		rawFormat  string
		remote     bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole database as JSON or YAML",
		Long: "Export every task, tag, note, attachment, user and option.\n" +
			"By default the database is read directly; --remote asks the running server instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := models.ParseExportFormat(rawFormat)
			if err != nil {
				return err
			}

			// Render into memory first so a failed export leaves no partial file.
			var buf bytes.Buffer
			if remote {
				err = withClient(cfg, func(client *api.Client) error {
					return client.Export(cmd.Context(), string(format), &buf)
				})
			} else {
				err = exportLocal(cmd, cfg, format, &buf)
			}
			if err != nil {
				return err
			}

			if outputPath == "" {
				_, err = os.Stdout.Write(buf.Bytes())
				return err
			}
			return os.WriteFile(outputPath, buf.Bytes(), 0o600)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&rawFormat, "format", "f", "json", "export format: json or yaml")
	cmd.Flags().BoolVar(&remote, "remote", false, "export through the API server")
	return cmd
}

func exportLocal(cmd *cobra.Command, cfg *config.Config, format models.ExportFormat, w io.Writer) error {
	svc, _, closeBackend, err := localService(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer closeBackend()

	data, err := svc.Export(cmd.Context(), service.Operator())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return service.EncodeExport(w, format, data)
}
