package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	internalauth "cloudsync/internal/auth"
	"cloudsync/internal/config"
	"cloudsync/internal/models"
	"cloudsync/internal/store"
)

func newUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Provision user rows in the local metadata database",
	}
	cmd.AddCommand(
		newUserAddCmd(cfg, jsonOutput),
		newUserListCmd(cfg, jsonOutput),
	)
	return cmd
}

func newUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create one user",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}

			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			normalizedEmail, err := internalauth.NormalizeEmail(email)
			if err != nil {
				return err
			}

			passwordBytes, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			hash, err := internalauth.HashPassword(strings.TrimRight(string(passwordBytes), "\r\n"))
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			user := &models.User{Username: username, Email: normalizedEmail, HashedPassword: hash}
			if err := st.CreateUser(cmd.Context(), user); err != nil {
				if errors.Is(err, store.ErrUserExists) {
					return fmt.Errorf("user %s or email %s already exists", username, normalizedEmail)
				}
				return err
			}

			if *jsonOutput {
				return writeJSON(user)
			}
			return writePlain("created user %s (%d)\n", user.Username, user.ID)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisioned users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(users)
			}
			if len(users) == 0 {
				return writePlain("no users provisioned\n")
			}
			for _, user := range users {
				if err := writePlain("%d\t%s\t%s\t%s\n", user.ID, user.Username, user.Email, formatTime(user.CreatedAt)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
