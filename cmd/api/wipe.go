package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/imageshare/service/internal/auth"
	"github.com/imageshare/service/internal/image"
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every stored image without going through the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}
		if !yes {
			return fmt.Errorf("refusing to wipe without --yes")
		}

		store, err := newStorage(cmd.Context(), current)
		if err != nil {
			return fmt.Errorf("storage init failed: %w", err)
		}

		res, err := image.NewService(store, current.log.Named("image")).WipeAll(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d images\n", res.Deleted)
		for _, name := range res.Failed {
			fmt.Fprintf(cmd.OutOrStdout(), "failed: %s\n", name)
		}
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token signed with the configured API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, err := cmd.Flags().GetString("subject")
		if err != nil {
			return err
		}
		ttl, err := cmd.Flags().GetDuration("ttl")
		if err != nil {
			return err
		}
		if ttl == 0 {
			ttl = current.cfg.TokenTTL
		}

		token, exp, err := auth.NewGate(current.cfg.APIKey).IssueToken(subject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", exp.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	wipeCmd.Flags().BoolP("yes", "y", false, "Confirm deletion of every stored image")
	tokenCmd.Flags().StringP("subject", "s", "cli", "Subject recorded in the token")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to TOKEN_TTL)")
}
