package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javajoker/scentdb-backend/internal/utils"
)

func newTokenCommand(a *app) *cobra.Command {
	var (
		client string
		ttl    int
	)

	cmd := &cobra.Command{
		Use:     "token",
		Short:   "Mint a bearer token for the ingest API",
		Args:    cobra.NoArgs,
		Example: `  perfumectl token --client parfumo-crawler --ttl 720`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				ttl = a.cfg.JWT.ServiceTokenTTL
			}
			utils.SetJWTSecret(a.cfg.JWT.SecretKey)
			utils.SetJWTIssuer(a.cfg.JWT.Issuer)

			token, err := utils.GenerateServiceToken(client, ttl)
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "client name recorded in the token")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "lifetime in hours (default JWT_SERVICE_TTL)")
	_ = cmd.MarkFlagRequired("client")

	return cmd
}
