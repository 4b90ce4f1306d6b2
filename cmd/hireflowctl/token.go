package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hireflow/internal/common"
	"hireflow/internal/security"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and inspect staff bearer tokens",
	}
	cmd.AddCommand(newTokenMintCommand(ctx), newTokenInspectCommand(ctx))
	return cmd
}

func newTokenMintCommand(ctx *commandContext) *cobra.Command {
	var (
		id    string
		name  string
		email string
		caps  []string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a bearer token for the internal management API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			staffID := common.NewUUID()
			if id != "" {
				if staffID, err = common.ParseUUID(id); err != nil {
					return fmt.Errorf("invalid --id: %w", err)
				}
			}
			granted := security.ParseCapabilities(caps)
			if len(granted) == 0 {
				return errors.New("no valid capabilities given")
			}
			token, expiresAt, err := security.NewJWTProvider(cfg.JWTSecret).Generate(staffID, name, email, granted, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Staff id (uuid); generated when empty")
	cmd.Flags().StringVar(&name, "name", "", "Staff display name")
	cmd.Flags().StringVar(&email, "email", "", "Staff email")
	cmd.Flags().StringSliceVar(&caps, "caps", []string{string(security.CapabilityView)}, "Capabilities: applications.view, applications.manage")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func newTokenInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a bearer token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			claims, err := security.NewJWTProvider(cfg.JWTSecret).Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderClaims(claims))
			return nil
		},
	}
}
