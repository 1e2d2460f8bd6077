package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tudor/internal/api"
	"tudor/internal/config"
	"tudor/internal/models"
	"tudor/internal/service"
)

func newImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		inputPath string
		rawFormat string
		remote    bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an export file, keeping its ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}
			if rawFormat == "" {
				rawFormat = formatFromExtension(inputPath)
			}
			format, err := models.ParseExportFormat(rawFormat)
			if err != nil {
				return err
			}

			f, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer f.Close()

			var resp api.ImportResponse
			if remote {
				err = withClient(cfg, func(client *api.Client) error {
					var importErr error
					resp, importErr = client.Import(cmd.Context(), string(format), f)
					return importErr
				})
			} else {
				resp, err = importLocal(cmd, cfg, format, f)
			}
			if err != nil {
				return err
			}

			if *jsonOutput {
				return writeJSON(resp)
			}
			return writePlain("imported tasks: %d, tags: %d, notes: %d, attachments: %d, users: %d, options: %d\n",
				resp.Tasks, resp.Tags, resp.Notes, resp.Attachments, resp.Users, resp.Options)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "export file to import")
	cmd.Flags().StringVarP(&rawFormat, "format", "f", "", "input format: json or yaml (default: from file extension)")
	cmd.Flags().BoolVar(&remote, "remote", false, "import through the API server")
	return cmd
}

func importLocal(cmd *cobra.Command, cfg *config.Config, format models.ExportFormat, r io.Reader) (api.ImportResponse, error) {
	data, err := service.DecodeExport(r, format)
	if err != nil {
		return api.ImportResponse{}, err
	}

	svc, _, closeBackend, err := localService(cfg, slog.Default())
	if err != nil {
		return api.ImportResponse{}, err
	}
	defer closeBackend()

	res, err := svc.Import(cmd.Context(), service.Operator(), data)
	if err != nil {
		return api.ImportResponse{}, fmt.Errorf("import: %w", err)
	}
	return api.ImportResponse{
		Tasks:       res.Tasks,
		Tags:        res.Tags,
		Notes:       res.Notes,
		Attachments: res.Attachments,
		Users:       res.Users,
		Options:     res.Options,
	}, nil
}

func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return string(models.FormatYAML)
	}
	return string(models.FormatJSON)
}
