package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"tudor/internal/api"
	"tudor/internal/config"
	"tudor/internal/service"
)

func newUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage tudor users",
	}
	cmd.AddCommand(newUserAddCmd(cfg, jsonOutput))
	return cmd
}

func newUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		passwordStdin bool
		admin         bool
		remote        bool
	)

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create a user",
		Long: "Create a user. The first user of a database is always an admin.\n" +
			"Without --remote the database is written directly.",
		Args: requireExactlyArgs(1, "email is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}
			passwordBytes, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			password := strings.TrimSpace(string(passwordBytes))

			var created api.UserResponse
			if remote {
				err = withClient(cfg, func(client *api.Client) error {
					var createErr error
					created, createErr = client.CreateUser(cmd.Context(), api.UserCreateRequest{Email: args[0], Password: password, IsAdmin: admin})
					return createErr
				})
			} else {
				created, err = addUserLocal(cmd, cfg, args[0], password, admin)
			}
			if err != nil {
				return err
			}

			if *jsonOutput {
				return writeJSON(created)
			}
			role := "user"
			if created.IsAdmin {
				role = "admin"
			}
			return writePlain("created %s %s (%d)\n", role, created.Email, created.ID)
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin privileges")
	cmd.Flags().BoolVar(&remote, "remote", false, "create the user through the API server")
	return cmd
}

func addUserLocal(cmd *cobra.Command, cfg *config.Config, email, password string, admin bool) (api.UserResponse, error) {
	svc, _, closeBackend, err := localService(cfg, slog.Default())
	if err != nil {
		return api.UserResponse{}, err
	}
	defer closeBackend()

	user, err := svc.CreateUser(cmd.Context(), service.Operator(), email, password, admin)
	if err != nil {
		return api.UserResponse{}, err
	}
	return api.UserResponse{ID: user.ID(), Email: user.Email(), IsAdmin: user.IsAdmin()}, nil
}
