package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/video-stream/subbot/internal/auth"
)

func newTokenCommand(o *options) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for a chat user",
		Long: `Mint a bearer token the chat frontend presents on behalf of a user.
Tokens are signed with jwt_secret; set it explicitly or tokens die with the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			token, err := auth.NewJWTService(cfg.JWTSecret).GenerateToken(userID, ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime (0 for no expiry)")
	return cmd
}
